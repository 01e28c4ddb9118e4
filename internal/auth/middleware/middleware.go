// Package middleware authenticates HTTP requests and installs the typed
// principal into the context.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"equitygate/internal/auth/jwt"
	"equitygate/internal/auth/revocation"
	"equitygate/pkg/requestcontext"
)

// Authenticator validates bearer tokens and builds principals.
type Authenticator struct {
	tokens      *jwt.Service
	revocations revocation.List
	logger      *slog.Logger
}

func NewAuthenticator(tokens *jwt.Service, revocations revocation.List, logger *slog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, revocations: revocations, logger: logger}
}

// RequireAuth rejects requests without a valid, unrevoked bearer token. On
// success the principal is available through requestcontext; there is no
// ambient fallback.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}

		claims, err := a.tokens.Validate(token)
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}

		if a.revocations != nil {
			revoked, err := a.revocations.IsRevoked(r.Context(), claims.ID)
			if err != nil {
				// Revocation backend down: fail closed.
				if a.logger != nil {
					a.logger.ErrorContext(r.Context(), "revocation check failed", "error", err)
				}
				http.Error(w, `{"error":"authentication unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			if revoked {
				http.Error(w, `{"error":"token revoked"}`, http.StatusUnauthorized)
				return
			}
		}

		principal, err := claims.Principal()
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}

		ctx := requestcontext.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}
