package misc

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mhemon/emon-blog-server/internal/auth"
	"github.com/mhemon/emon-blog-server/internal/middleware"
	"github.com/mhemon/emon-blog-server/internal/telemetry/metrics"
	"github.com/mhemon/emon-blog-server/internal/telemetry/tracing"
	"github.com/mhemon/emon-blog-server/pkg"
)

type Handler struct {
	tokenService *auth.TokenService
	versionInfo  string
	instr        *metrics.Manager
}

func NewHandler(
	tokenService *auth.TokenService,
	versionInfo string,
	instr *metrics.Manager,
) *Handler {
	return &Handler{
		tokenService: tokenService,
		versionInfo:  versionInfo,
		instr:        instr,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	tokenRateLimitAllowedPerMin int,
) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")

	tokenSubrouter := mainRouter.PathPrefix("/jwt").Subrouter()
	tokenSubrouter.
		HandleFunc("", handler.handleIssueToken).
		Methods("POST", "OPTIONS").Name("issue-token")

	// rate limit token issuance to prevent abuse
	tokenSubrouter.Use(middleware.RateLimit(
		rateLimiter, "jwt", tokenRateLimitAllowedPerMin, handler.instr,
	))
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "Hello from Emon Blog api!")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

func (handler *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.issueToken")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	type issueTokenRequest struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Photo string `json:"photo"`
	}

	var tokenReq issueTokenRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&tokenReq); err != nil {
			log.Errorf("issue token, unmarshal json params: %s", err)
			http.Error(w, "issue token failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("issue token failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		tokenReq = issueTokenRequest{
			Email: r.Form.Get("email"),
			Name:  r.Form.Get("name"),
			Photo: r.Form.Get("photo"),
		}
	}

	if tokenReq.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}

	token, err := handler.tokenService.Issue(tokenReq.Email, tokenReq.Name, tokenReq.Photo)
	if err != nil {
		log.Errorf("issue token failed, sign error: %s", err)
		http.Error(w, "issue token error", http.StatusInternalServerError)
		return
	}

	if handler.instr != nil {
		handler.instr.CounterTokensIssued.Inc()
	}

	log.Tracef("new token issued for %s", tokenReq.Email)
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"token":"%s"}`, token))
}
