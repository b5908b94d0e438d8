package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/mocks"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentHandler_RunAssignments(t *testing.T) {
	t.Parallel()

	runID := uuid.New()
	tests := []struct {
		name        string
		result      *service.RunResult
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "run finished",
			result:      &service.RunResult{RunID: runID, TotalTasks: 3, AssignedTasks: 2, UnassignedTasks: 1},
			wantStatus:  http.StatusOK,
			wantMessage: "Assigned 2 of 3 tasks",
		},
		{
			name:        "already running",
			err:         service.NewServiceError("run", "failed to acquire lock", service.ErrRunInProgress),
			wantStatus:  http.StatusConflict,
			wantMessage: "An assignment run is already in progress",
		},
		{
			name:        "nothing to assign",
			err:         service.ErrNoTasks,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "No tasks available for assignment",
		},
		{
			name:        "storage failure",
			err:         errors.New("pq: could not serialize access"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "Failed to run assignments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mocks.MockAssignmentService{
				RunFn: func(context.Context) (*service.RunResult, error) {
					return tt.result, tt.err
				},
			}
			handler := NewAssignmentHandler(svc, discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/assignments/run", nil)
			req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, uuid.New()))
			rec := httptest.NewRecorder()
			handler.RunAssignments(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp struct {
				Message string    `json:"message"`
				Error   string    `json:"error"`
				RunID   uuid.UUID `json:"run_id"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.err != nil {
				assert.Equal(t, tt.wantMessage, resp.Error)
				return
			}
			assert.Equal(t, tt.wantMessage, resp.Message)
			assert.Equal(t, runID, resp.RunID)
		})
	}
}

func TestAssignmentHandler_PreviewAssignments(t *testing.T) {
	t.Parallel()

	t.Run("derives ids and defaults availability", func(t *testing.T) {
		t.Parallel()

		var gotUsers []*domain.User
		var gotTasks []*domain.Task
		svc := &mocks.MockAssignmentService{
			PreviewFn: func(_ context.Context, users []*domain.User, tasks []*domain.Task) ([]domain.AssignmentRecord, error) {
				gotUsers, gotTasks = users, tasks
				return []domain.AssignmentRecord{{TaskID: tasks[0].ID, UserID: users[0].ID, Score: 0.9}}, nil
			},
		}
		handler := NewAssignmentHandler(svc, discardLogger())

		body := `{
			"users": [
				{"sso_id":"e100","name":"Ana","email":"ana@example.com","role":"Software Engineer",
				 "skills":[{"skill":"Go","level":9}],"experience_years":5},
				{"sso_id":"e101","name":"Ben","email":"ben@example.com","role":"QA Engineer","is_available":false}
			],
			"tasks": [{"title":"Build API","description":"REST","story_points":5,"required_skills":["Go"]}]
		}`
		rec := httptest.NewRecorder()
		handler.PreviewAssignments(rec, httptest.NewRequest(http.MethodPost, "/api/assignments/preview", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, gotUsers, 2)
		require.Len(t, gotTasks, 1)
		assert.Equal(t, domain.UserIDFromSSO("e100"), gotUsers[0].ID)
		assert.True(t, gotUsers[0].IsAvailable)
		assert.False(t, gotUsers[1].IsAvailable)
		assert.Equal(t, domain.TaskIDFromTitle("Build API"), gotTasks[0].ID)
		assert.Equal(t, domain.TaskStatusPending, gotTasks[0].Status)

		var resp PreviewResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Records, 1)
		assert.Equal(t, gotUsers[0].ID, resp.Records[0].UserID)
	})

	t.Run("malformed record", func(t *testing.T) {
		t.Parallel()

		svc := &mocks.MockAssignmentService{
			DefaultError: errors.Join(domain.NewInputError(domain.KindUser, "e100", "email", "is malformed")),
		}
		handler := NewAssignmentHandler(svc, discardLogger())

		body := `{"users":[{"sso_id":"e100","email":"nope"}],"tasks":[{"title":"A"}]}`
		rec := httptest.NewRecorder()
		handler.PreviewAssignments(rec, httptest.NewRequest(http.MethodPost, "/api/assignments/preview", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid user: email is malformed", decodeError(t, rec))
	})

	t.Run("no tasks", func(t *testing.T) {
		t.Parallel()

		handler := NewAssignmentHandler(&mocks.MockAssignmentService{}, discardLogger())
		rec := httptest.NewRecorder()
		handler.PreviewAssignments(rec, httptest.NewRequest(http.MethodPost, "/api/assignments/preview",
			bytes.NewBufferString(`{"users":[],"tasks":[]}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid Tasks: too small", decodeError(t, rec))
	})
}

func TestAssignmentHandler_ListAssignments(t *testing.T) {
	t.Parallel()

	runID := uuid.New()

	t.Run("filters by run", func(t *testing.T) {
		t.Parallel()

		var gotRun *uuid.UUID
		var gotLimit int
		svc := &mocks.MockAssignmentService{
			ListAssignmentsFn: func(_ context.Context, id *uuid.UUID, limit int) ([]*domain.Assignment, error) {
				gotRun, gotLimit = id, limit
				return []*domain.Assignment{{ID: uuid.New(), RunID: runID}}, nil
			},
		}
		handler := NewAssignmentHandler(svc, discardLogger())

		rec := httptest.NewRecorder()
		handler.ListAssignments(rec, httptest.NewRequest(http.MethodGet, "/api/assignments?run_id="+runID.String()+"&limit=5", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotRun)
		assert.Equal(t, runID, *gotRun)
		assert.Equal(t, 5, gotLimit)
		var resp AssignmentListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		var gotRun *uuid.UUID
		var gotLimit int
		svc := &mocks.MockAssignmentService{
			ListAssignmentsFn: func(_ context.Context, id *uuid.UUID, limit int) ([]*domain.Assignment, error) {
				gotRun, gotLimit = id, limit
				return nil, nil
			},
		}
		handler := NewAssignmentHandler(svc, discardLogger())

		rec := httptest.NewRecorder()
		handler.ListAssignments(rec, httptest.NewRequest(http.MethodGet, "/api/assignments", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, gotRun)
		assert.Equal(t, service.DefaultListLimit, gotLimit)
		assert.JSONEq(t, `{"assignments":[],"count":0}`, rec.Body.String())
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		handler := NewAssignmentHandler(&mocks.MockAssignmentService{DefaultError: store.ErrRunNotFound}, discardLogger())
		rec := httptest.NewRecorder()
		handler.ListAssignments(rec, httptest.NewRequest(http.MethodGet, "/api/assignments?run_id="+runID.String(), nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Assignment run not found", decodeError(t, rec))
	})

	t.Run("bad run id", func(t *testing.T) {
		t.Parallel()

		handler := NewAssignmentHandler(&mocks.MockAssignmentService{}, discardLogger())
		rec := httptest.NewRecorder()
		handler.ListAssignments(rec, httptest.NewRequest(http.MethodGet, "/api/assignments?run_id=abc", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid ID", decodeError(t, rec))
	})
}
