package http

import (
	"errors"
	"net/http"

	"github.com/chronotrack-io/chronotrack/internal/domain"
	"github.com/chronotrack-io/chronotrack/internal/domain/organization"
)

// SignupOrganization handles POST /api/v1/organizations. It registers the
// organization and provisions its tenant database in one call.
func (h *Handlers) SignupOrganization(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[organization.SignupRequest](w, r, maxBodySize)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	org, err := h.Registration.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// GetOrganization handles GET /api/v1/organizations/{id}.
func (h *Handlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	org, err := h.Organizations.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

// ListOrganizations handles GET /api/v1/organizations/list.
func (h *Handlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Organizations.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "organizations not found")
		return
	}
	if orgs == nil {
		orgs = []organization.Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

// OrganizationHealth handles GET /api/v1/organizations/{id}/health.
func (h *Handlers) OrganizationHealth(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := h.Organizations.TenantHealth(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "organization not found")
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
