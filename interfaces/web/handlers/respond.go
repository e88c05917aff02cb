package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"nppflow/application"
	"nppflow/domain/contracts"
	"nppflow/domain/permissions"
	"nppflow/domain/workflow"
)

// Error types carried in APIError.Type.
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnavailable  = "upstream_unavailable"
	ErrorTypeInternal     = "internal_error"
)

// APIError is the JSON error body of every failed request.
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, APIError{
		Type:   errorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// respondValidationError reports per-field validation failures.
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}
	respondJSON(w, http.StatusBadRequest, APIError{
		Type:   ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, contracts.ErrLicenseInvalid),
		errors.Is(err, contracts.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, contracts.ErrScenarioConflict),
		errors.Is(err, application.ErrJobAlreadyRunning),
		errors.Is(err, workflow.ErrInvalidTransition),
		errors.Is(err, contracts.ErrStageIncomplete),
		errors.Is(err, contracts.ErrNoNextStage):
		return http.StatusConflict
	case errors.Is(err, contracts.ErrNoSeatsAvailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, permissions.ErrInvalidGroupName),
		errors.Is(err, application.ErrUnsupportedJobType),
		errors.Is(err, contracts.ErrNotModelFolder):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrMasterDataMissing):
		return http.StatusInternalServerError
	}
	if status := contracts.StatusCode(err); status >= 500 || status == http.StatusTooManyRequests {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondServiceError writes err with the status its kind maps to.
func respondServiceError(w http.ResponseWriter, err error) {
	respondWithError(w, statusFor(err), err.Error())
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case http.StatusForbidden:
		return ErrorTypeForbidden
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrorTypeConflict
	case http.StatusBadGateway:
		return ErrorTypeUnavailable
	default:
		return ErrorTypeInternal
	}
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", toJSONFieldName(fe.Field()))
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}

func toJSONFieldName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// It writes the error response itself and reports whether to continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	// An empty body leaves dst at its zero value.
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// intParam parses a positive integer URL parameter.
func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}

// intList parses a comma separated list of positive integers.
func intList(raw string) ([]int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, v)
	}
	return ids, nil
}
