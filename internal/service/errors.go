package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
// The API layer maps them to HTTP status codes.
var (
	// ErrTaskNotOwned indicates a task belongs to a different user than the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrTaskNotOwned = errors.New("task is owned by another user")

	// ErrInvalidCredentials indicates the current password supplied for a change was wrong.
	// API layer should map this to HTTP 401 Unauthorized.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ServiceError records which service operation failed.
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service %s failed: %v", e.Service, e.Operation, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func taskError(op string, err error) error {
	return &ServiceError{Service: "task", Operation: op, Err: err}
}

func userError(op string, err error) error {
	return &ServiceError{Service: "user", Operation: op, Err: err}
}
