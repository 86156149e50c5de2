package middleware_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
	"github.com/chronotrack-io/chronotrack/internal/middleware"
	"github.com/chronotrack-io/chronotrack/internal/port/database"
	"github.com/chronotrack-io/chronotrack/internal/service"
)

// stubRegistry serves a single principal; the embedded interface panics on
// any method the resolver should never touch.
type stubRegistry struct {
	database.RegistryStore
	principal *identity.Principal
	org       *organization.Organization
}

func (s *stubRegistry) GetPrincipal(_ context.Context, id string) (*identity.Principal, error) {
	if s.principal != nil && s.principal.ID == id {
		p := *s.principal
		return &p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubRegistry) GetOrganization(_ context.Context, id string) (*organization.Organization, error) {
	if s.org != nil && s.org.ID == id {
		o := *s.org
		return &o, nil
	}
	return nil, domain.ErrNotFound
}

type stubDemo struct {
	database.DemoStore
}

func (s *stubDemo) GetPrincipal(_ context.Context, _ string) (*identity.Principal, error) {
	return nil, domain.ErrNotFound
}

func authFixture() (*service.TokenIssuer, *service.IdentityResolver, *identity.Principal) {
	p := &identity.Principal{
		ID:     "p-1",
		Email:  "jane@acme.test",
		Name:   "Jane Smith",
		Role:   identity.RoleAdmin,
		Active: true,
	}
	registry := &stubRegistry{principal: p}
	resolver := service.NewIdentityResolver(registry, &stubDemo{}, nil, time.Minute, slog.Default())
	tokens := service.NewTokenIssuer("test-secret", time.Hour)
	return tokens, resolver, p
}

func echoIdentity(t *testing.T, want string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			t.Error("no identity in context")
		} else if ident.ID != want {
			t.Errorf("identity id = %q, want %q", ident.ID, want)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthValidToken(t *testing.T) {
	tokens, resolver, p := authFixture()
	handler := middleware.Auth(tokens, resolver)(echoIdentity(t, "p-1"))

	token, err := tokens.Issue(p, identity.SourceRegistry)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMissingHeader(t *testing.T) {
	tokens, resolver, _ := authFixture()
	handler := middleware.Auth(tokens, resolver)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthMalformedHeader(t *testing.T) {
	tokens, resolver, _ := authFixture()
	handler := middleware.Auth(tokens, resolver)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", http.NoBody)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	tokens, resolver, _ := authFixture()
	handler := middleware.Auth(tokens, resolver)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthDeactivatedPrincipal(t *testing.T) {
	tokens, resolver, p := authFixture()
	handler := middleware.Auth(tokens, resolver)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	token, err := tokens.Issue(p, identity.SourceRegistry)
	if err != nil {
		t.Fatal(err)
	}
	// Token stays valid, but the account behind it is gone.
	p.Active = false

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthPublicPaths(t *testing.T) {
	tokens, resolver, _ := authFixture()
	handler := middleware.Auth(tokens, resolver)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/health/ready", "/api/v1/auth/login", "/api/v1/organizations"} {
		req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200 without credentials", path, rec.Code)
		}
	}

	// Same path, different method: listing organizations needs a token.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/v1/organizations: status = %d, want 401", rec.Code)
	}
}
