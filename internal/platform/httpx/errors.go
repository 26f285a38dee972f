package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Envelope codes shared by every endpoint.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeDuplicate           = "DUPLICATE"
	CodeValidation          = "VALIDATION_FAILED"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeInternal            = "INTERNAL_ERROR"
)

// RespondError maps domain errors to failure envelopes. Unknown errors never
// leak their message.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error(), CodeNotFound)
	case errors.Is(err, ErrDuplicate):
		Fail(w, http.StatusConflict, err.Error(), CodeDuplicate)
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, err.Error(), CodeValidation)
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, "forbidden", CodeForbidden)
	case errors.Is(err, ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, "unauthorized", CodeUnauthorized)
	default:
		Fail(w, http.StatusInternalServerError, "internal server error", CodeInternal)
	}
}
