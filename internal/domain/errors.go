// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// It is usually wrapped by an *InputError naming the offending record.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when an operation is not permitted.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrInvalidTransition is returned when a task cannot move to the
	// requested status from its current one.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Record kinds reported by InputError.
const (
	KindUser       = "user"
	KindTask       = "task"
	KindAssignment = "assignment"
)

// InputError describes a single malformed user, task or assignment record.
// It always unwraps to ErrValidation.
type InputError struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// NewInputError builds an InputError for the record identified by key.
func NewInputError(kind, key, field, reason string) *InputError {
	return &InputError{Kind: kind, Key: key, Field: field, Reason: reason}
}

// Error implements the error interface.
func (e *InputError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid %s: %s %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s %s", e.Kind, e.Key, e.Field, e.Reason)
}

// Unwrap returns ErrValidation so callers can match with errors.Is.
func (e *InputError) Unwrap() error {
	return ErrValidation
}

// AsInputError extracts an *InputError from err, if present.
func AsInputError(err error) (*InputError, bool) {
	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return inputErr, true
	}
	return nil, false
}
