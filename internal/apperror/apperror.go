// Package apperror defines the error kinds the service layer reports.
//
// Every error a handler can meaningfully show to a client is an *AppError
// wrapping one of the sentinel values below. Handlers match on the sentinel
// with errors.Is and map it to an HTTP status in one place; anything that is
// not an *AppError is treated as an internal failure.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Compare with errors.Is, never with ==, because the
// repositories and services wrap them.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)

// AppError carries a sentinel kind plus a message that is safe to show to
// the client.
type AppError struct {
	Err     error  // one of the sentinels above
	Message string // human readable, returned in the response body
	Field   string // input field that caused a validation error, if any
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record. Records owned by another user are
// reported the same way so ids cannot be probed.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation, e.g. a second account for the
// same email address.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, key),
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports failed credentials. The message never says which
// credential was wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Unavailable reports a feature whose backing service is not configured.
func Unavailable(feature string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: fmt.Sprintf("%s is not available", feature),
	}
}
