package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chronotrack-io/chronotrack/internal/domain/identity"
	"github.com/chronotrack-io/chronotrack/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. The Auth
// middleware is expected to already be installed on r.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Auth
		r.Post("/auth/login", h.Login)
		r.Get("/auth/me", h.Me)

		// Organizations
		r.Post("/organizations", h.SignupOrganization)
		r.With(middleware.RequireRole(identity.RoleAdmin)).
			Get("/organizations", h.ListOrganizations)
		r.With(middleware.RequireRole(identity.RoleAdmin, identity.RoleManager)).
			Get("/organizations/{id}", h.GetOrganization)
		r.With(middleware.RequireRole(identity.RoleAdmin, identity.RoleManager)).
			Get("/organizations/{id}/health", h.OrganizationHealth)
	})
}
