package user

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhemon/emon-blog-server/internal/auth"
	"github.com/mhemon/emon-blog-server/internal/middleware"
	"github.com/mhemon/emon-blog-server/internal/telemetry/metrics"
)

func getTestUserRouterAndRepo(t *testing.T) (*mux.Router, *repoMock, *auth.TokenService) {
	t.Helper()

	repo := newRepoMock()
	require.NoError(t, repo.Add(context.Background(), &User{
		Email: "author@test.com",
		Name:  gofakeit.Name(),
		Role:  RoleAuthor,
	}))
	require.NoError(t, repo.Add(context.Background(), &User{
		Email: "reader@test.com",
		Name:  gofakeit.Name(),
	}))

	tokenService := auth.NewTokenService([]byte("test-signing-secret"))

	r := mux.NewRouter()
	handler := NewHandler(repo, metrics.NewTestManager())
	require.NotNil(t, handler)
	handler.SetupRoutes(r)

	authMiddleware := middleware.NewAuthMiddlewareHandler(tokenService)
	r.Use(authMiddleware.AuthCheck())

	return r, repo, tokenService
}

func TestNewHandler_routes(t *testing.T) {
	r := mux.NewRouter()
	handler := NewHandler(newRepoMock(), metrics.NewTestManager())
	require.NotNil(t, handler)
	handler.SetupRoutes(r)

	for caseName, route := range map[string]struct {
		name   string
		path   string
		method string
	}{
		"register-user-post": {
			name:   "register-user",
			path:   "/users",
			method: "POST",
		},
		"register-user-options": {
			name:   "register-user",
			path:   "/users",
			method: "OPTIONS",
		},
		"check-author-get": {
			name:   "check-author",
			path:   "/check-author/someone@test.com",
			method: "GET",
		},
	} {
		t.Run(caseName, func(t *testing.T) {
			req, err := http.NewRequest(route.method, route.path, nil)
			require.NoError(t, err)

			routeMatch := &mux.RouteMatch{}
			muxRoute := r.Get(route.name)
			require.NotNil(t, muxRoute)
			isMatch := muxRoute.Match(req, routeMatch)
			assert.True(t, isMatch, caseName)
		})
	}
}

func TestUserHandler_handleRegister(t *testing.T) {
	r, repo, _ := getTestUserRouterAndRepo(t)

	currentUsersCount := repo.UsersCount()

	reqBody := `{"email":"new-user@test.com","name":"New User","photo":"https://pics.test/n.png"}`
	req, err := http.NewRequest("POST", "/users", strings.NewReader(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), "insertedId")
	assert.Equal(t, currentUsersCount+1, repo.UsersCount())

	added := repo.Users["new-user@test.com"]
	require.NotNil(t, added)
	assert.Equal(t, "New User", added.Name)
	assert.False(t, added.IsAuthor())
	assert.False(t, added.ID.IsZero())
}

func TestUserHandler_handleRegister_form(t *testing.T) {
	r, repo, _ := getTestUserRouterAndRepo(t)

	req, err := http.NewRequest("POST", "/users", nil)
	require.NoError(t, err)
	req.PostForm = url.Values{}
	req.PostForm.Add("email", "form-user@test.com")
	req.PostForm.Add("name", "Form User")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
	require.NotNil(t, repo.Users["form-user@test.com"])
	assert.Equal(t, "Form User", repo.Users["form-user@test.com"].Name)
}

func TestUserHandler_handleRegister_alreadyExists(t *testing.T) {
	r, repo, _ := getTestUserRouterAndRepo(t)

	currentUsersCount := repo.UsersCount()
	nameBefore := repo.Users["reader@test.com"].Name

	reqBody := `{"email":"reader@test.com","name":"Impostor"}`
	req, err := http.NewRequest("POST", "/users", strings.NewReader(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"message":"user already exist!"}`, rr.Body.String())
	assert.Equal(t, currentUsersCount, repo.UsersCount())
	assert.Equal(t, nameBefore, repo.Users["reader@test.com"].Name)
}

func TestUserHandler_handleRegister_emptyEmail(t *testing.T) {
	r, repo, _ := getTestUserRouterAndRepo(t)

	currentUsersCount := repo.UsersCount()

	reqBody := `{"name":"No Email"}`
	req, err := http.NewRequest("POST", "/users", strings.NewReader(reqBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, currentUsersCount, repo.UsersCount())
}

func TestUserHandler_handleCheckAuthor(t *testing.T) {
	r, _, tokenService := getTestUserRouterAndRepo(t)

	token, err := tokenService.Issue("author@test.com", "", "")
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "/check-author/author@test.com", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"author":true}`, rr.Body.String())
}

func TestUserHandler_handleCheckAuthor_notAnAuthor(t *testing.T) {
	r, _, tokenService := getTestUserRouterAndRepo(t)

	token, err := tokenService.Issue("reader@test.com", "", "")
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "/check-author/reader@test.com", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"author":false}`, rr.Body.String())
}

func TestUserHandler_handleCheckAuthor_emailMismatch(t *testing.T) {
	r, _, tokenService := getTestUserRouterAndRepo(t)

	// reader holds a valid token but asks about the author's email
	token, err := tokenService.Issue("reader@test.com", "", "")
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "/check-author/author@test.com", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"author":false}`, rr.Body.String())
}

func TestUserHandler_handleCheckAuthor_unknownUser(t *testing.T) {
	r, _, tokenService := getTestUserRouterAndRepo(t)

	email := fmt.Sprintf("ghost-%s@test.com", gofakeit.LetterN(6))
	token, err := tokenService.Issue(email, "", "")
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "/check-author/"+email, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"author":false}`, rr.Body.String())
}

func TestUserHandler_handleCheckAuthor_noToken(t *testing.T) {
	r, _, _ := getTestUserRouterAndRepo(t)

	req, err := http.NewRequest("GET", "/check-author/author@test.com", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `{"error":true,"message":"unauthorized access!"}`, rr.Body.String())
}
