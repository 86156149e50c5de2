package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/middleware"
)

func injectIdentity(ident *identity.Identity, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), ident)))
	})
}

func TestRequireRole_AdminAllowed(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	admin := &identity.Identity{ID: "p-1", Role: identity.RoleAdmin, Source: identity.SourceRegistry}
	handler := injectIdentity(admin, middleware.RequireRole(identity.RoleAdmin)(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRequireRole_NoIdentity_Returns401(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// No auth middleware, so no identity in context.
	handler := middleware.RequireRole(identity.RoleAdmin)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole_WrongRole_Returns403(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	employee := &identity.Identity{ID: "p-2", Role: identity.RoleEmployee, Source: identity.SourceRegistry}
	handler := injectIdentity(employee, middleware.RequireRole(identity.RoleAdmin)(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestRequireRole_ManagerAllowedForManagerRoute(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	manager := &identity.Identity{ID: "p-3", Role: identity.RoleManager, Source: identity.SourceDemo}
	handler := injectIdentity(manager, middleware.RequireRole(identity.RoleAdmin, identity.RoleManager)(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
