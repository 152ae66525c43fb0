package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAuthorization   = errors.New("authorization failed")
	ErrInvalidInput    = errors.New("invalid input")
	ErrExternalService = errors.New("external service failure")
	ErrPersistence     = errors.New("persistence failure")
	ErrPublish         = errors.New("event publish failure")

	// ErrTerminal signals a claim against a job that is no longer queued:
	// either already claimed by another worker or already finished.
	// Terminal rows are never resurrected.
	ErrTerminal = errors.New("job not claimable")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
