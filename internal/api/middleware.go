package api

import (
	"net/http"
	"strings"

	"chatrelay-backend/internal/auth"
	"chatrelay-backend/internal/logging"
	"chatrelay-backend/pkg/httputil"
)

// TokenVerifier validates admin access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.AdminClaims, error)
}

// JwtAuthMiddleware verifies the admin token and injects its claims into the
// request context. The token comes from the Authorization header or, for
// websocket upgrades that cannot set headers, the token query parameter.
func JwtAuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				logging.Debug().Err(err).Str("path", r.URL.Path).Msg("[Auth Middleware] Rejected token")
				httputil.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if !claims.IsAdmin {
				httputil.RespondError(w, http.StatusUnauthorized, "Admin token required")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAdmin(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}
