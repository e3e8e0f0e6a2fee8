// Package apperror defines the domain errors shared by the storage, service,
// and HTTP layers.
//
// Each constructor returns an *AppError wrapping one of the sentinel values
// below, so callers test the category with errors.Is and read the
// human-readable message with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrStorage       = errors.New("storage failure")
)

type AppError struct {
	Err     error  // sentinel category
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

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

// Unauthorized is returned when a request carries no valid API token.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// QuotaExceeded reports a write that would not fit in the storage quota,
// the server-side equivalent of a browser QuotaExceededError.
func QuotaExceeded(key string, size, limit int) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: fmt.Sprintf("writing %s would use %d bytes, quota is %d bytes", key, size, limit),
	}
}

// StorageFailed reports that the journal could not persist a change.
// The underlying cause has already been logged by the store.
func StorageFailed(operation string) *AppError {
	return &AppError{
		Err:     ErrStorage,
		Message: fmt.Sprintf("could not %s: storage unavailable", operation),
	}
}
