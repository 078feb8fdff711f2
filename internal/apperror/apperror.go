package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout      = errors.New("Request timeout - please check your connection")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNetwork      = errors.New("network error")
	ErrValidation   = errors.New("Validation Error")
	ErrBusy         = errors.New("another change to this item is in progress")
	ErrNotFound     = errors.New("not found")

	ErrInvalidResponse = errors.New("Invalid response from server")
)

// AppError carries a human-readable message alongside a sentinel error.
type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // shown to the user
	Field   string // optional: input field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ValidationFailed returns an AppError for invalid user input.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// NotFound returns an AppError for a missing entity.
func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

// Busy returns an AppError for a mutation rejected because another one on
// the same key has not finished.
func Busy(key string) *AppError {
	return &AppError{
		Err:     ErrBusy,
		Message: fmt.Sprintf("%s is already being saved", key),
	}
}

// APIError is a non-2xx, non-401 response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Network wraps a transport failure.
func Network(cause error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, cause)
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Message returns the user-facing text for err. Validation and API errors
// surface their own message; anything else uses err.Error().
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
