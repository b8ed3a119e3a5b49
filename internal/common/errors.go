// Package common defines shared constants and sentinel errors used across
// the tourdesk server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal    = errors.New("internal error")
	ErrorPersistence = errors.New("persistence error")
	ErrorValidation  = errors.New("validation error")

	// Access errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Booking errors.
	ErrorCapacityExceeded = errors.New("no slots available for this package")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field-level messages for one request.
// It matches ErrorValidation under errors.Is.
type ValidationError struct {
	Fields []FieldError
}

// Add appends a message for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when at least one field failed, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation error: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrorValidation
}

// NewValidationError is a shortcut for a single failing field.
func NewValidationError(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
