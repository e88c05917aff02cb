package handlers

import (
	"context"
	"net/http"

	"nppflow/domain/contracts"
	"nppflow/domain/npp"
	"nppflow/interfaces/web/auth"
)

// LicenseChecker reports the tenant license.
type LicenseChecker interface {
	License(ctx context.Context) (*contracts.License, error)
}

// IdentityHandlers serves the caller's own profile.
type IdentityHandlers struct {
	licenses LicenseChecker
}

// NewIdentityHandlers creates identity handlers.
func NewIdentityHandlers(licenses LicenseChecker) *IdentityHandlers {
	return &IdentityHandlers{licenses: licenses}
}

type meResponse struct {
	User         npp.User           `json:"user"`
	License      *contracts.License `json:"license,omitempty"`
	LicenseError string             `json:"licenseError,omitempty"`
}

// Me returns the signed-in site user and the tenant license state.
func (h *IdentityHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "no caller")
		return
	}
	resp := meResponse{User: *user}
	if license, err := h.licenses.License(r.Context()); err != nil {
		resp.LicenseError = err.Error()
	} else {
		resp.License = license
	}
	respondJSON(w, http.StatusOK, resp)
}
