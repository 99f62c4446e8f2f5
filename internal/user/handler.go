package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mhemon/emon-blog-server/internal/auth"
	"github.com/mhemon/emon-blog-server/internal/telemetry/metrics"
	"github.com/mhemon/emon-blog-server/internal/telemetry/tracing"
	"github.com/mhemon/emon-blog-server/pkg"
)

type userRepo interface {
	Add(ctx context.Context, u *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type Handler struct {
	repo  userRepo
	instr *metrics.Manager
}

func NewHandler(repo userRepo, instr *metrics.Manager) *Handler {
	return &Handler{
		repo:  repo,
		instr: instr,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/users", handler.handleRegister).Methods("POST", "OPTIONS").Name("register-user")
	router.HandleFunc("/check-author/{email}", handler.handleCheckAuthor).Methods("GET", "OPTIONS").Name("check-author")
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "userHandler.register")
	defer span.End()

	var newUser User
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&newUser); err != nil {
			log.Errorf("register user, unmarshal json params: %s", err)
			http.Error(w, "register user failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("register user failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		newUser = User{
			Email: r.Form.Get("email"),
			Name:  r.Form.Get("name"),
			Photo: r.Form.Get("photo"),
			Role:  r.Form.Get("role"),
		}
	}

	if newUser.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Add(ctx, &newUser); err != nil {
		if errors.Is(err, ErrUserExists) {
			pkg.WriteJSONResponseOK(w, `{"message":"user already exist!"}`)
			return
		}
		log.Errorf("register user failed: %s", err)
		http.Error(w, "register user failed", http.StatusInternalServerError)
		return
	}

	if handler.instr != nil {
		handler.instr.CounterUsersRegistered.Inc()
	}

	pkg.WriteResponse(
		w,
		pkg.ContentType.JSON,
		fmt.Sprintf(`{"insertedId":"%s"}`, newUser.ID.Hex()),
		http.StatusCreated,
	)
}

// handleCheckAuthor tells the caller whether the given email belongs to a
// registered author. The email must match the verified token identity; a
// mismatch is denied outright, without touching the store.
func (handler *Handler) handleCheckAuthor(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "userHandler.checkAuthor")
	defer span.End()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "unauthorized access!", http.StatusUnauthorized)
		return
	}

	email := mux.Vars(r)["email"]
	if email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}

	if email != claims.Email {
		log.Tracef("check author: [%s] asked for [%s], denied", claims.Email, email)
		pkg.WriteJSONResponseOK(w, `{"author":false}`)
		return
	}

	u, err := handler.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONResponseOK(w, `{"author":false}`)
			return
		}
		log.Errorf("check author failed: %s", err)
		http.Error(w, "check author failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"author":%t}`, u.IsAuthor()))
}
