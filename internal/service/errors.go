package service

import (
	"errors"
	"fmt"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in *ServiceError
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrRunInProgress indicates another assignment run holds the run lock.
	// API layer should map this to HTTP 409 Conflict.
	ErrRunInProgress = errors.New("an assignment run is already in progress")

	// ErrNoTasks indicates there are no pending, unassigned tasks to assign.
	// API layer should map this to HTTP 422 Unprocessable Entity.
	ErrNoTasks = errors.New("no assignable tasks")

	// ErrEmptyImport indicates an import file held no usable rows.
	// API layer should map this to HTTP 400 Bad Request.
	ErrEmptyImport = errors.New("no valid rows found in file")
)

// ServiceError is a custom error type for service failures. It records the
// operation that failed and wraps the underlying cause.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
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
