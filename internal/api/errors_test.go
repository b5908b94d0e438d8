package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/service/auth"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"nil error", nil, http.StatusInternalServerError},
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"wrapped expired token", fmt.Errorf("authenticate: %w", auth.ErrExpiredToken), http.StatusUnauthorized},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"run not found", store.ErrRunNotFound, http.StatusNotFound},
		{"email exists", store.ErrEmailExists, http.StatusConflict},
		{"title exists", store.ErrTaskTitleExists, http.StatusConflict},
		{"task already assigned", store.ErrTaskAlreadyAssigned, http.StatusConflict},
		{"run in progress", service.ErrRunInProgress, http.StatusConflict},
		{"no tasks", service.ErrNoTasks, http.StatusUnprocessableEntity},
		{"empty import", service.ErrEmptyImport, http.StatusUnprocessableEntity},
		{"input error", domain.NewInputError(domain.KindTask, "t1", "title", "is required"), http.StatusBadRequest},
		{"invalid file", fmt.Errorf("%w: %w", domain.ErrInvalidFormat, tabular.ErrMissingColumns), http.StatusBadRequest},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest},
		{"unsupported format", tabular.ErrUnsupportedFormat, http.StatusBadRequest},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{
			"service error keeps cause",
			service.NewServiceError("run", "failed to lock", service.ErrRunInProgress),
			http.StatusConflict,
		},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expectedStatus, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, "An unexpected error occurred"},
		{"expired token", auth.ErrExpiredToken, "Token expired"},
		{"wrong token type", auth.ErrWrongTokenType, "Invalid token"},
		{"task not found", fmt.Errorf("get: %w", store.ErrTaskNotFound), "Task not found"},
		{"run not found", store.ErrRunNotFound, "Assignment run not found"},
		{"sso exists", store.ErrSSOIDExists, "SSO ID already exists"},
		{"run in progress", service.ErrRunInProgress, "An assignment run is already in progress"},
		{"missing columns", fmt.Errorf("%w: %w", domain.ErrInvalidFormat, tabular.ErrMissingColumns), "Missing required columns"},
		{
			"input error names the field",
			domain.NewInputError(domain.KindUser, "e100", "email", "is malformed"),
			"Invalid user: email is malformed",
		},
		{"bare validation error", domain.ErrValidation, "Validation error"},
		{"database details hidden", errors.New("pq: relation \"users\" does not exist"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestHandleAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		fallback    string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "fallback replaces generic server error",
			err:         errors.New("dial tcp 10.0.0.5:5432: connection refused"),
			fallback:    "Failed to list tasks",
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to list tasks",
		},
		{
			name:        "fallback ignored for client errors",
			err:         store.ErrTaskNotFound,
			fallback:    "Failed to get task",
			wantStatus:  http.StatusNotFound,
			wantMessage: "Task not found",
		},
		{
			name:        "no fallback",
			err:         errors.New("boom"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			req = req.WithContext(shared.SetTraceID(req.Context()))
			rec := httptest.NewRecorder()

			HandleAPIError(rec, req, tt.err, tt.fallback)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp shared.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMessage, resp.Error)
			assert.NotEmpty(t, resp.TraceID)
			assert.NotContains(t, rec.Body.String(), "10.0.0.5")
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	v := validator.New()

	err := v.Struct(CreateTaskRequest{Description: "d"})
	require.Error(t, err)
	assert.Equal(t, "Invalid Title: required field", SanitizeValidationError(err))

	err = v.Struct(CreateTaskRequest{Title: "t", Description: "d", StoryPoints: 500})
	require.Error(t, err)
	assert.Equal(t, "Invalid StoryPoints: too large", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}
