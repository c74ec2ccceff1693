package domain

import (
	"errors"
	"sort"
	"strings"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database, or exists but is outside the
// caller's visible set. Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, latitude out of bounds).
// Handlers should map this to HTTP 400 with a field-keyed body.
var ErrValidation = errors.New("validation error")

// ErrUnauthenticated is returned when an anonymous caller attempts an
// identity-scoped operation. Handlers should map this to HTTP 401.
var ErrUnauthenticated = errors.New("authentication required")

// ErrForbidden is returned when an authenticated caller is neither the author
// nor staff on a write to a record they can see. Handlers map it to HTTP 403.
var ErrForbidden = errors.New("permission denied")

// ErrInvalidCredentials is returned by login when the username is unknown or
// the password does not match. The two causes are deliberately not told apart.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned when an access or refresh token is malformed,
// expired, of the wrong type, or revoked.
var ErrInvalidToken = errors.New("invalid token")

// ErrConflict is returned by repos when a unique constraint is violated.
var ErrConflict = errors.New("conflict")

// ValidationError carries every field-level violation found in a payload.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add calls.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add records one reason against field.
func (e *ValidationError) Add(field, reason string) {
	e.Fields[field] = append(e.Fields[field], reason)
}

// Merge copies every violation from other into e.
func (e *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	for field, reasons := range other.Fields {
		e.Fields[field] = append(e.Fields[field], reasons...)
	}
}

// Has reports whether field has at least one recorded violation.
// A nil ValidationError has none.
func (e *ValidationError) Has(field string) bool {
	return e != nil && len(e.Fields[field]) > 0
}

// OrNil returns nil when no violations were recorded, so callers can write
// `return verr.OrNil()` without a typed-nil error leaking out.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Error renders the violations in a stable field order,
// e.g. "validation error: latitude: must be between 44.0 and 52.5; title: is required".
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// FieldError is a shorthand for a ValidationError with a single violation.
func FieldError(field, reason string) *ValidationError {
	e := NewValidationError()
	e.Add(field, reason)
	return e
}
