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
)

// UserHandler serves user listing, creation, import and export.
type UserHandler struct {
	userService   service.UserService
	importService service.ImportService
	exportService service.ExportService
	validator     *validator.Validate
	logger        *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	userService service.UserService,
	importService service.ImportService,
	exportService service.ExportService,
	logger *slog.Logger,
) *UserHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for UserHandler")
	}
	return &UserHandler{
		userService:   userService,
		importService: importService,
		exportService: exportService,
		validator:     validator.New(),
		logger:        logger.With(slog.String("component", "user_handler")),
	}
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list users")
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, users)
}

// CreateUser handles POST /api/users. A repeated SSO ID or email is a conflict.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateUserRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	user := req.toDomain(time.Now().UTC())
	if err := h.userService.CreateUser(r.Context(), user); err != nil {
		HandleAPIError(w, r, err, "Failed to create user")
		return
	}

	log.Debug("user created", slog.String("user_id", user.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, user)
}

// ImportUsers handles POST /api/users/import with a multipart "file" field.
func (h *UserHandler) ImportUsers(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	file, format, err := readUpload(w, r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer func() { _ = file.Close() }()

	report, err := h.importService.ImportUsers(r.Context(), file, format)
	if err != nil {
		respondImportError(w, r, report, err, "Failed to import users")
		return
	}

	log.Debug("user import finished", slog.Int("imported", report.Imported), slog.Int("updated", report.Updated))
	shared.RespondWithJSON(w, r, http.StatusOK, ImportResponse{
		Message:      "Users imported",
		ImportReport: report,
	})
}

// ExportUsers handles GET /api/users/export?format=csv|xlsx
func (h *UserHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	format, err := getFormat(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	err = writeFile(w, r, "users", format, func(out io.Writer) error {
		return h.exportService.ExportUsers(r.Context(), out, format)
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to export users")
	}
}
