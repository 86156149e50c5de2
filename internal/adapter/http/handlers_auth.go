package http

import (
	"net/http"

	"github.com/chronotrack-io/chronotrack/internal/middleware"
	"github.com/chronotrack-io/chronotrack/internal/service"
)

// Login handles POST /api/v1/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.LoginRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromContext(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	writeJSON(w, http.StatusOK, ident)
}
