package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a user with the same SSO id).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation affects no rows
	// or violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// ErrDeleteFailed is returned when a delete operation fails.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrUserNotFound indicates that the requested user does not exist in the store.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrAssignmentNotFound indicates that the requested assignment does not exist.
	ErrAssignmentNotFound = fmt.Errorf("%w: assignment", ErrNotFound)

	// ErrRunNotFound indicates that the requested assignment run does not exist.
	ErrRunNotFound = fmt.Errorf("%w: assignment run", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrEmailExists indicates that another user already uses the email.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

	// ErrSSOIDExists indicates that a user with the SSO id already exists.
	ErrSSOIDExists = fmt.Errorf("%w: sso id", ErrDuplicate)

	// ErrTaskTitleExists indicates that an open task with the same title exists.
	ErrTaskTitleExists = fmt.Errorf("%w: task title", ErrDuplicate)

	// ErrTaskAlreadyAssigned is returned when applying an assignment to a
	// task that is no longer pending.
	ErrTaskAlreadyAssigned = fmt.Errorf("%w: task already assigned", ErrUpdateFailed)

	// ErrTaskStatusChanged is returned when a task update finds the task in
	// a different status than the one it was read with.
	ErrTaskStatusChanged = fmt.Errorf("%w: task status changed", ErrUpdateFailed)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "user", "task")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
