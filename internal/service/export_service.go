package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
)

// ExportService writes stored users and tasks as CSV or XLSX.
type ExportService interface {
	ExportTasks(ctx context.Context, w io.Writer, format tabular.Format) error
	ExportUsers(ctx context.Context, w io.Writer, format tabular.Format) error
}

type exportServiceImpl struct {
	users  store.UserStore
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewExportService creates an ExportService.
func NewExportService(users store.UserStore, tasks store.TaskStore, logger *slog.Logger) ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &exportServiceImpl{
		users:  users,
		tasks:  tasks,
		logger: logger.With(slog.String("component", "export_service")),
	}
}

func (s *exportServiceImpl) ExportTasks(ctx context.Context, w io.Writer, format tabular.Format) error {
	tasks, err := s.tasks.List(ctx, store.TaskFilter{})
	if err != nil {
		return NewServiceError("export_tasks", "failed to load tasks", err)
	}
	if err := tabular.WriteTasks(w, tasks, format); err != nil {
		return NewServiceError("export_tasks", "failed to write tasks", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("tasks exported",
		slog.Int("count", len(tasks)),
		slog.String("format", string(format)))
	return nil
}

func (s *exportServiceImpl) ExportUsers(ctx context.Context, w io.Writer, format tabular.Format) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return NewServiceError("export_users", "failed to load users", err)
	}
	if err := tabular.WriteUsers(w, users, format); err != nil {
		return NewServiceError("export_users", "failed to write users", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("users exported",
		slog.Int("count", len(users)),
		slog.String("format", string(format)))
	return nil
}
