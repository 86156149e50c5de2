package http

import (
	"context"
	"net/http"

	"github.com/chronotrack-io/chronotrack/internal/service"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20 // 1 MB

// Handlers bundles the services behind the HTTP API.
type Handlers struct {
	Auth          *service.AuthService
	Registration  *service.RegistrationService
	Organizations *service.OrganizationService

	// ReadyCheck reports whether downstream stores are reachable. nil
	// means readiness degenerates to liveness.
	ReadyCheck func(ctx context.Context) error
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /health/ready.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ReadyCheck != nil {
		if err := h.ReadyCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
