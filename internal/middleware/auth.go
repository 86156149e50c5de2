package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/service"
)

type identityCtxKey struct{}

// publicPaths are exempt from authentication.
var publicPaths = map[string]bool{
	"/health":            true,
	"/health/ready":      true,
	"/api/v1/auth/login": true,
}

// isPublic exempts the unauthenticated surface: health probes, login, and
// the signup POST. Listing organizations on the same path stays guarded.
func isPublic(r *http.Request) bool {
	if publicPaths[r.URL.Path] {
		return true
	}
	return r.Method == http.MethodPost && r.URL.Path == "/api/v1/organizations"
}

// Auth returns middleware that validates the bearer token and resolves the
// caller's identity. The token's src claim picks which store is tried first;
// resolution falls through to the other store when the hint misses.
func Auth(tokens *service.TokenIssuer, resolver *service.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				http.Error(w, `{"error":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ident, err := resolver.Resolve(r.Context(), claims.Subject, identity.Source(claims.Source))
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityCtxKey{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated identity from the request
// context, or nil for unauthenticated requests.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	ident, _ := ctx.Value(identityCtxKey{}).(*identity.Identity)
	return ident
}

// WithIdentity injects an identity into the context. Exported for handler
// tests that bypass the Auth middleware.
func WithIdentity(ctx context.Context, ident *identity.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, ident)
}
