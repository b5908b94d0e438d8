package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

// TaskHandler serves task CRUD, import and export.
type TaskHandler struct {
	taskService   service.TaskService
	importService service.ImportService
	exportService service.ExportService
	validator     *validator.Validate
	logger        *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(
	taskService service.TaskService,
	importService service.ImportService,
	exportService service.ExportService,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		taskService:   taskService,
		importService: importService,
		exportService: exportService,
		validator:     validator.New(),
		logger:        logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /api/tasks?status=&limit=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	filter := store.TaskFilter{}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.TaskStatus(raw)
		if !isKnownStatus(status) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filter.Status = status
	}

	limit, err := getQueryInt(r, "limit", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	filter.Limit = limit

	tasks, err := h.taskService.ListTasks(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// CreateTask handles POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task := req.toDomain(time.Now().UTC())
	if err := h.taskService.CreateTask(r.Context(), task); err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// GetTask handles GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// UpdateTask handles PUT /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), id, req.toUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	log.Debug("task updated",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportTasks handles POST /api/tasks/import with a multipart "file" field.
func (h *TaskHandler) ImportTasks(w http.ResponseWriter, r *http.Request) {
	file, format, err := readUpload(w, r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer func() { _ = file.Close() }()

	report, err := h.importService.ImportTasks(r.Context(), file, format)
	if err != nil {
		respondImportError(w, r, report, err, "Failed to import tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ImportResponse{
		Message:      "Tasks imported",
		ImportReport: report,
	})
}

// ExportTasks handles GET /api/tasks/export?format=csv|xlsx
func (h *TaskHandler) ExportTasks(w http.ResponseWriter, r *http.Request) {
	format, err := getFormat(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	err = writeFile(w, r, "tasks", format, func(out io.Writer) error {
		return h.exportService.ExportTasks(r.Context(), out, format)
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export tasks")
	}
}

func isKnownStatus(s domain.TaskStatus) bool {
	switch s {
	case domain.TaskStatusPending, domain.TaskStatusInProgress,
		domain.TaskStatusCompleted, domain.TaskStatusCancelled:
		return true
	default:
		return false
	}
}
