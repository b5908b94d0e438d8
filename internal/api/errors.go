package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/service/auth"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrTaskAlreadyAssigned),
		errors.Is(err, store.ErrTaskStatusChanged),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict

	// Nothing to do
	case errors.Is(err, service.ErrNoTasks),
		errors.Is(err, service.ErrEmptyImport):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, tabular.ErrUnsupportedFormat):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"

	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrRunNotFound):
		return "Assignment run not found"

	case errors.Is(err, store.ErrAssignmentNotFound):
		return "Assignment not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case errors.Is(err, store.ErrSSOIDExists):
		return "SSO ID already exists"

	case errors.Is(err, store.ErrTaskTitleExists):
		return "A pending task with this title already exists"

	case errors.Is(err, store.ErrTaskAlreadyAssigned):
		return "Task is already assigned"

	case errors.Is(err, store.ErrTaskStatusChanged):
		return "Task was changed by another request"

	case errors.Is(err, domain.ErrInvalidTransition):
		return "Task cannot move to that status"

	case errors.Is(err, service.ErrRunInProgress):
		return "An assignment run is already in progress"

	case errors.Is(err, service.ErrNoTasks):
		return "No tasks available for assignment"

	case errors.Is(err, service.ErrEmptyImport):
		return "No valid rows found in file"

	case errors.Is(err, tabular.ErrMissingColumns):
		return "Missing required columns"

	case errors.Is(err, tabular.ErrUnsupportedFormat):
		return "Unsupported file format"

	case errors.Is(err, domain.ErrInvalidFormat):
		return "Invalid file"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, domain.ErrValidation):
		if inputErr, ok := domain.AsInputError(err); ok {
			return fmt.Sprintf("Invalid %s: %s %s", inputErr.Kind, inputErr.Field, inputErr.Reason)
		}
		return "Validation error"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps err to a status code and a safe message and writes
// the response. A non-empty fallback replaces the generic message of
// internal server errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'CreateTaskRequest.Title' Error:Field validation for 'Title' failed on the 'required' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	case "dive":
		return "invalid element"
	default:
		return "validation failed"
	}
}
