package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/skillmatch-api/internal/api/shared"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/service"
)

// AssignmentHandler triggers assignment runs and lists their results.
type AssignmentHandler struct {
	assignmentService service.AssignmentService
	validator         *validator.Validate
	logger            *slog.Logger
}

// NewAssignmentHandler creates a new AssignmentHandler
func NewAssignmentHandler(assignmentService service.AssignmentService, logger *slog.Logger) *AssignmentHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AssignmentHandler")
	}
	return &AssignmentHandler{
		assignmentService: assignmentService,
		validator:         validator.New(),
		logger:            logger.With(slog.String("component", "assignment_handler")),
	}
}

// RunAssignments handles POST /api/assignments/run
func (h *AssignmentHandler) RunAssignments(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if userID, ok := getUserIDFromContext(r); ok {
		log.Info("assignment run requested", slog.String("user_id", userID.String()))
	}

	result, err := h.assignmentService.Run(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to run assignments")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, RunResponse{
		Message:   fmt.Sprintf("Assigned %d of %d tasks", result.AssignedTasks, result.TotalTasks),
		RunResult: result,
	})
}

// PreviewAssignments handles POST /api/assignments/preview. Nothing is
// persisted; malformed records fail the whole request.
func (h *AssignmentHandler) PreviewAssignments(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	users, tasks := req.toDomain()
	records, err := h.assignmentService.Preview(r.Context(), users, tasks)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to preview assignments")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PreviewResponse{Records: records})
}

// ListAssignments handles GET /api/assignments?run_id=&limit=
func (h *AssignmentHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	runID, err := getQueryUUID(r, "run_id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := getQueryInt(r, "limit", service.DefaultListLimit)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	list, err := h.assignmentService.ListAssignments(r.Context(), runID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list assignments")
		return
	}

	resp := AssignmentListResponse{Assignments: list, Count: len(list)}
	if resp.Assignments == nil {
		resp.Assignments = []*domain.Assignment{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
