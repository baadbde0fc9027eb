package auth

import (
	"net/http"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// BearerMiddleware resolves an Authorization bearer token into the request
// actor. Requests without a token pass through unauthenticated; RBAC decides
// what they may reach.
func BearerMiddleware(tokens *TokenStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
				if actor, err := tokens.Resolve(r.Context(), token); err == nil {
					r = r.WithContext(shared.ContextWithActor(r.Context(), actor))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
