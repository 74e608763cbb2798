// Package httputil carries the shared response envelope and the mapping
// from domain errors to HTTP statuses.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/educore/educore/pkg/domain"
)

// Envelope is the response body shape used by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// JSON writes a success envelope with the given status and payload.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Success: true, Message: message, Data: data}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes a failure envelope with the given status and message.
func Error(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Success: false, Message: message}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// DomainError maps a service error onto an HTTP response. Unrecognized
// errors become an opaque 500 so internals never leak to clients.
func DomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		Error(w, http.StatusBadRequest, verr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrMalformedToken),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrInvalidMFACode):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrTenantInactive),
		errors.Is(err, domain.ErrUserInactive):
		Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrMFANotEnabled):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmailExists),
		errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrMFAAlreadyEnabled):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// Decode reads a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
