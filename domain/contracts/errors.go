package contracts

import (
	"errors"
	"fmt"
)

// Common errors for domain contracts
var (
	ErrNotFound = errors.New("not found")

	// ErrNoNextStage means the current stage is the last of its stage type
	ErrNoNextStage = errors.New("no next stage")

	// ErrStageIncomplete blocks advancing while actions are open
	ErrStageIncomplete = errors.New("stage has incomplete actions")

	// ErrScenarioConflict means a model with the same scenario set already exists in the folder
	ErrScenarioConflict = errors.New("a model with the same scenarios already exists")

	// ErrNoSeatsAvailable is returned by the licensing API as HTTP 422
	ErrNoSeatsAvailable = errors.New("no seats available")

	ErrLicenseInvalid    = errors.New("license is not valid")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrMasterDataMissing = errors.New("master data missing")
	ErrNotModelFolder    = errors.New("department does not hold models")
)

// GatewayError carries the HTTP status of a failed remote call.
type GatewayError struct {
	Op     string
	Status int
	Err    error
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status from a wrapped GatewayError, or 0.
func StatusCode(err error) int {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Status
	}
	return 0
}
