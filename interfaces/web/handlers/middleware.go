package handlers

import (
	"context"
	"net/http"

	"nppflow/domain/npp"
	"nppflow/interfaces/web/auth"
	"nppflow/logging"
)

// OwnerAuthorizer decides whether a user may administer an entity.
type OwnerAuthorizer interface {
	AuthorizeOwner(ctx context.Context, entityID int, user npp.User) error
}

// RequireLicense refuses API calls while the tenant license is not valid.
func RequireLicense(licenses LicenseChecker) func(http.Handler) http.Handler {
	logger := logging.Default().WithComponent("license_gate")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := licenses.License(r.Context()); err != nil {
				logger.WithContext(r.Context()).Licensing("Request refused", "path", r.URL.Path, "error", err)
				respondServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireEntityOwner lets only owners of the {entityID} entity through.
func RequireEntityOwner(owners OwnerAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			entityID, err := intParam(r, "entityID")
			if err != nil {
				respondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "no caller")
				return
			}
			if err := owners.AuthorizeOwner(r.Context(), entityID, *user); err != nil {
				respondServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
