package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Authentication and session errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("missing or unparseable credentials")
	ErrForbidden          = errors.New("insufficient role or tenant scope")
	ErrMalformedToken     = errors.New("malformed token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTenantInactive     = errors.New("tenant does not permit access")
	ErrUserInactive       = errors.New("user account is not active")
)

// Tenant lifecycle and quota errors
var (
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrEmailExists            = errors.New("email already exists")
	ErrQuotaExceeded          = errors.New("student seat limit reached")
	ErrInvalidStateTransition = errors.New("invalid tenant status transition")
)

// MFA errors
var (
	ErrMFAAlreadyEnabled = errors.New("MFA is already enabled")
	ErrMFANotEnabled     = errors.New("MFA is not enabled for this account")
	ErrInvalidMFACode    = errors.New("invalid MFA code")
)

// ValidationError carries field-level messages for malformed input. The
// boundary layer surfaces the fields verbatim with a 400 status.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates an empty validation error.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for a field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

// HasErrors returns true if any field failed validation.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
