package service

import (
	"errors"
	"fmt"
)

// Common service errors. The API layer maps these to HTTP status codes.
var (
	// ErrSessionNotFound indicates no live session has the requested ID.
	// API layer should map this to HTTP 404 Not Found.
	ErrSessionNotFound = errors.New("study session not found")

	// ErrNilDependency indicates a constructor was given a nil collaborator.
	ErrNilDependency = errors.New("required dependency is nil")
)

// ServiceError carries the failing operation alongside the underlying cause.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start_session", "answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("study service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("study service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
