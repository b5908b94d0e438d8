package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/mocks"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestNewTaskHandler_RequiresLogger(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		NewTaskHandler(&mocks.MockTaskService{}, &mocks.MockImportService{}, &mocks.MockExportService{}, nil)
	})
}

func TestTaskHandler_ListTasks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFilter store.TaskFilter
	}{
		{"no filter", "", http.StatusOK, store.TaskFilter{}},
		{"status and limit", "?status=pending&limit=3", http.StatusOK, store.TaskFilter{Status: domain.TaskStatusPending, Limit: 3}},
		{"unknown status", "?status=archived", http.StatusBadRequest, store.TaskFilter{}},
		{"bad limit", "?limit=ten", http.StatusBadRequest, store.TaskFilter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotFilter store.TaskFilter
			tasks := &mocks.MockTaskService{
				ListTasksFn: func(_ context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
					gotFilter = filter
					return nil, nil
				},
			}
			handler := NewTaskHandler(tasks, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())

			rec := httptest.NewRecorder()
			handler.ListTasks(rec, httptest.NewRequest(http.MethodGet, "/api/tasks"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantFilter, gotFilter)
				assert.JSONEq(t, `[]`, rec.Body.String())
			}
		})
	}
}

func TestTaskHandler_CreateTask(t *testing.T) {
	t.Parallel()

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		var created *domain.Task
		tasks := &mocks.MockTaskService{
			CreateTaskFn: func(_ context.Context, task *domain.Task) error {
				created = task
				return nil
			},
		}
		handler := NewTaskHandler(tasks, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())

		body := `{"title":"  Build API ","description":"REST layer","story_points":8,"required_skills":["Go","SQL"]}`
		rec := httptest.NewRecorder()
		handler.CreateTask(rec, httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, created)
		assert.Equal(t, "Build API", created.Title)
		assert.Equal(t, 8, created.StoryPoints)
		assert.Equal(t, []string{"Go", "SQL"}, created.RequiredSkills)
		assert.Equal(t, domain.TaskStatusPending, created.Status)
		assert.NotEqual(t, uuid.Nil, created.ID)
	})

	t.Run("validation failure", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(&mocks.MockTaskService{}, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())
		rec := httptest.NewRecorder()
		handler.CreateTask(rec, httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(`{"title":"x"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid Description: required field", decodeError(t, rec))
	})

	t.Run("title collision", func(t *testing.T) {
		t.Parallel()

		tasks := &mocks.MockTaskService{DefaultError: store.ErrTaskTitleExists}
		handler := NewTaskHandler(tasks, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())
		rec := httptest.NewRecorder()
		body := `{"title":"Build API","description":"REST layer"}`
		handler.CreateTask(rec, httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestTaskHandler_GetAndDelete(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tasks := &mocks.MockTaskService{
		GetTaskFn: func(_ context.Context, taskID uuid.UUID) (*domain.Task, error) {
			if taskID != id {
				return nil, store.ErrTaskNotFound
			}
			return &domain.Task{ID: id, Title: "Build API"}, nil
		},
		DeleteTaskFn: func(_ context.Context, taskID uuid.UUID) error {
			if taskID != id {
				return store.ErrTaskNotFound
			}
			return nil
		},
	}
	handler := NewTaskHandler(tasks, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())

	rec := httptest.NewRecorder()
	handler.GetTask(rec, withPathParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Build API")

	rec = httptest.NewRecorder()
	handler.GetTask(rec, withPathParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Task not found", decodeError(t, rec))

	rec = httptest.NewRecorder()
	handler.GetTask(rec, withPathParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "nope"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	handler.DeleteTask(rec, withPathParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", id.String()))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTaskHandler_UpdateTask(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	tests := []struct {
		name       string
		path       string
		body       string
		serviceErr error
		wantStatus int
		wantError  string
		wantUpdate func(t *testing.T, upd service.TaskUpdate)
	}{
		{
			name:       "complete",
			path:       id.String(),
			body:       `{"status":"completed"}`,
			wantStatus: http.StatusOK,
			wantUpdate: func(t *testing.T, upd service.TaskUpdate) {
				require.NotNil(t, upd.Status)
				assert.Equal(t, domain.TaskStatusCompleted, *upd.Status)
				assert.Nil(t, upd.Title)
			},
		},
		{
			name:       "edit fields",
			path:       id.String(),
			body:       `{"title":"Build API v2","story_points":8,"tags":["backend"]}`,
			wantStatus: http.StatusOK,
			wantUpdate: func(t *testing.T, upd service.TaskUpdate) {
				require.NotNil(t, upd.Title)
				assert.Equal(t, "Build API v2", *upd.Title)
				require.NotNil(t, upd.StoryPoints)
				assert.Equal(t, 8, *upd.StoryPoints)
				assert.Equal(t, []string{"backend"}, upd.Tags)
				assert.Nil(t, upd.Status)
			},
		},
		{
			name:       "unknown status",
			path:       id.String(),
			body:       `{"status":"done"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "story points out of range",
			path:       id.String(),
			body:       `{"story_points":500}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			path:       id.String(),
			body:       `{"status":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request format",
		},
		{
			name:       "bad id",
			path:       "nope",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing task",
			path:       id.String(),
			body:       `{"status":"cancelled"}`,
			serviceErr: store.ErrTaskNotFound,
			wantStatus: http.StatusNotFound,
			wantError:  "Task not found",
		},
		{
			name:       "final status",
			path:       id.String(),
			body:       `{"status":"pending"}`,
			serviceErr: domain.ErrInvalidTransition,
			wantStatus: http.StatusConflict,
			wantError:  "Task cannot move to that status",
		},
		{
			name:       "concurrent change",
			path:       id.String(),
			body:       `{"status":"completed"}`,
			serviceErr: store.ErrTaskStatusChanged,
			wantStatus: http.StatusConflict,
			wantError:  "Task was changed by another request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got *service.TaskUpdate
			tasks := &mocks.MockTaskService{
				UpdateTaskFn: func(_ context.Context, taskID uuid.UUID, upd service.TaskUpdate) (*domain.Task, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					got = &upd
					status := domain.TaskStatusInProgress
					if upd.Status != nil {
						status = *upd.Status
					}
					return &domain.Task{ID: taskID, Title: "Build API", Status: status}, nil
				},
			}
			handler := NewTaskHandler(tasks, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())

			req := withPathParam(httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(tt.body)), "id", tt.path)
			rec := httptest.NewRecorder()
			handler.UpdateTask(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rec))
			}
			if tt.wantUpdate != nil {
				require.NotNil(t, got)
				tt.wantUpdate(t, *got)
				assert.Contains(t, rec.Body.String(), id.String())
			}
		})
	}
}

func TestTaskHandler_ImportTasks(t *testing.T) {
	t.Parallel()

	t.Run("report returned", func(t *testing.T) {
		t.Parallel()

		var gotFormat tabular.Format
		var gotBody string
		imports := &mocks.MockImportService{
			ImportTasksFn: func(_ context.Context, r io.Reader, format tabular.Format) (*service.ImportReport, error) {
				gotFormat = format
				b, _ := io.ReadAll(r)
				gotBody = string(b)
				return &service.ImportReport{
					Imported:    2,
					ParseErrors: []tabular.RowError{{Line: 4, Reason: "title is required"}},
				}, nil
			},
		}
		handler := NewTaskHandler(&mocks.MockTaskService{}, imports, &mocks.MockExportService{}, discardLogger())

		rec := httptest.NewRecorder()
		handler.ImportTasks(rec, multipartUpload(t, "/api/tasks/import", "tasks.csv", []byte("title\nA\nB\n")))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, tabular.FormatCSV, gotFormat)
		assert.Equal(t, "title\nA\nB\n", gotBody)

		var resp struct {
			Message     string             `json:"message"`
			Imported    int                `json:"imported"`
			ParseErrors []tabular.RowError `json:"parse_errors"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Tasks imported", resp.Message)
		assert.Equal(t, 2, resp.Imported)
		assert.Equal(t, []tabular.RowError{{Line: 4, Reason: "title is required"}}, resp.ParseErrors)
	})

	t.Run("no usable rows keeps report", func(t *testing.T) {
		t.Parallel()

		imports := &mocks.MockImportService{
			ImportTasksFn: func(context.Context, io.Reader, tabular.Format) (*service.ImportReport, error) {
				return &service.ImportReport{
					ParseErrors: []tabular.RowError{{Line: 2, Reason: "title is required"}},
				}, service.ErrEmptyImport
			},
		}
		handler := NewTaskHandler(&mocks.MockTaskService{}, imports, &mocks.MockExportService{}, discardLogger())

		rec := httptest.NewRecorder()
		handler.ImportTasks(rec, multipartUpload(t, "/api/tasks/import", "tasks.csv", []byte("title\n\"\"\n")))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), `"line":2`)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		handler := NewTaskHandler(&mocks.MockTaskService{}, &mocks.MockImportService{}, &mocks.MockExportService{}, discardLogger())
		rec := httptest.NewRecorder()
		handler.ImportTasks(rec, httptest.NewRequest(http.MethodPost, "/api/tasks/import", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid file", decodeError(t, rec))
	})
}

func TestTaskHandler_ExportTasks(t *testing.T) {
	t.Parallel()

	exports := &mocks.MockExportService{
		ExportTasksFn: func(_ context.Context, w io.Writer, format tabular.Format) error {
			_, err := io.WriteString(w, "format="+string(format))
			return err
		},
	}
	handler := NewTaskHandler(&mocks.MockTaskService{}, &mocks.MockImportService{}, exports, discardLogger())

	rec := httptest.NewRecorder()
	handler.ExportTasks(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "format=xlsx", rec.Body.String())
	assert.Equal(t, `attachment; filename="tasks.xlsx"`, rec.Header().Get("Content-Disposition"))

	rec = httptest.NewRecorder()
	handler.ExportTasks(rec, httptest.NewRequest(http.MethodGet, "/api/tasks/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unsupported file format", decodeError(t, rec))
}
