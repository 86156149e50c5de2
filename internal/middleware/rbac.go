package middleware

import (
	"net/http"

	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
)

// RequireRole returns middleware that restricts access to identities with one
// of the given roles.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	allowed := make(map[identity.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := IdentityFromContext(r.Context())
			if ident == nil {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			if !allowed[ident.Role] {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
