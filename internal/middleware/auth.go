package middleware

import (
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/mhemon/emon-blog-server/internal/auth"
	"github.com/mhemon/emon-blog-server/internal/telemetry/tracing"
	"github.com/mhemon/emon-blog-server/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=middleware_test

// TokenVerifier gives the middleware the claims for a bearer token, or an
// error for a token that must be rejected.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

type AuthMiddlewareHandler struct {
	verifier     TokenVerifier
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(verifier TokenVerifier) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		verifier: verifier,
		allowedPaths: map[string]bool{
			// by-design public endpoints:
			"/":      true,
			"/jwt":   true,
			"/users": true,
			"/blogs": true,
		},
	}
}

// AuthCheck rejects gated requests without a valid bearer credential: 401
// when the credential is missing, 403 when it fails verification. Verified
// claims are attached to the request context for the handlers downstream.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PATCH, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Tracef("[missing credential] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.WriteJSONError(w, "unauthorized access!", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-credential")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := h.verifier.Verify(token)
			if err != nil {
				reqIp, _ := pkg.ReadUserIP(r)
				log.Tracef("[invalid token] [auth middleware] request from %s rejected => %s", reqIp, r.URL.Path)
				pkg.WriteJSONError(w, "unauthorized access!", http.StatusForbidden)
				span.SetStatus(codes.Error, "invalid-token")
				span.RecordError(err)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.SetClaims(r.Context(), claims)))
		})
	}
}
