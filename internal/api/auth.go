package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/clinicore/consultation-service/internal/identity"
)

const identityKey contextKey = "identity"

// AuthMiddleware validates the bearer token and resolves the caller's full
// identity (role, staff flag, linked profiles) once, before any handler runs.
func AuthMiddleware(secret string, resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "missing_token", "authorization header is required")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "invalid_token", "authorization header must be a bearer token")
				return
			}

			userID, err := identity.ParseToken(secret, parts[1])
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
				return
			}

			ident, err := resolver.Resolve(r.Context(), userID)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unknown_identity", "no account for this token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, *ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom returns the resolved identity set by AuthMiddleware.
func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(identity.Identity)
	return ident, ok
}
