package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/events"
	"github.com/phrazzld/skillmatch-api/internal/service"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/phrazzld/skillmatch-api/internal/tabular"
)

// MockAssignmentService implements service.AssignmentService for testing
type MockAssignmentService struct {
	RunFn                  func(ctx context.Context) (*service.RunResult, error)
	PreviewFn              func(ctx context.Context, users []*domain.User, tasks []*domain.Task) ([]domain.AssignmentRecord, error)
	ListAssignmentsFn      func(ctx context.Context, runID *uuid.UUID, limit int) ([]*domain.Assignment, error)
	PendingNotificationsFn func(ctx context.Context, limit int) ([]events.AssignmentPayload, error)
	MarkNotifiedFn         func(ctx context.Context, assignmentID uuid.UUID) error

	DefaultError error
}

var _ service.AssignmentService = (*MockAssignmentService)(nil)

// Run implements service.AssignmentService
func (m *MockAssignmentService) Run(ctx context.Context) (*service.RunResult, error) {
	if m.RunFn != nil {
		return m.RunFn(ctx)
	}
	return nil, m.DefaultError
}

// Preview implements service.AssignmentService
func (m *MockAssignmentService) Preview(
	ctx context.Context,
	users []*domain.User,
	tasks []*domain.Task,
) ([]domain.AssignmentRecord, error) {
	if m.PreviewFn != nil {
		return m.PreviewFn(ctx, users, tasks)
	}
	return nil, m.DefaultError
}

// ListAssignments implements service.AssignmentService
func (m *MockAssignmentService) ListAssignments(
	ctx context.Context,
	runID *uuid.UUID,
	limit int,
) ([]*domain.Assignment, error) {
	if m.ListAssignmentsFn != nil {
		return m.ListAssignmentsFn(ctx, runID, limit)
	}
	return nil, m.DefaultError
}

// PendingNotifications implements service.AssignmentService
func (m *MockAssignmentService) PendingNotifications(ctx context.Context, limit int) ([]events.AssignmentPayload, error) {
	if m.PendingNotificationsFn != nil {
		return m.PendingNotificationsFn(ctx, limit)
	}
	return nil, m.DefaultError
}

// MarkNotified implements service.AssignmentService
func (m *MockAssignmentService) MarkNotified(ctx context.Context, assignmentID uuid.UUID) error {
	if m.MarkNotifiedFn != nil {
		return m.MarkNotifiedFn(ctx, assignmentID)
	}
	return m.DefaultError
}

// MockImportService implements service.ImportService for testing
type MockImportService struct {
	ImportUsersFn func(ctx context.Context, r io.Reader, format tabular.Format) (*service.ImportReport, error)
	ImportTasksFn func(ctx context.Context, r io.Reader, format tabular.Format) (*service.ImportReport, error)

	Report       *service.ImportReport
	DefaultError error
}

var _ service.ImportService = (*MockImportService)(nil)

// ImportUsers implements service.ImportService
func (m *MockImportService) ImportUsers(
	ctx context.Context,
	r io.Reader,
	format tabular.Format,
) (*service.ImportReport, error) {
	if m.ImportUsersFn != nil {
		return m.ImportUsersFn(ctx, r, format)
	}
	return m.Report, m.DefaultError
}

// ImportTasks implements service.ImportService
func (m *MockImportService) ImportTasks(
	ctx context.Context,
	r io.Reader,
	format tabular.Format,
) (*service.ImportReport, error) {
	if m.ImportTasksFn != nil {
		return m.ImportTasksFn(ctx, r, format)
	}
	return m.Report, m.DefaultError
}

// MockExportService implements service.ExportService for testing
type MockExportService struct {
	ExportTasksFn func(ctx context.Context, w io.Writer, format tabular.Format) error
	ExportUsersFn func(ctx context.Context, w io.Writer, format tabular.Format) error

	DefaultError error
}

var _ service.ExportService = (*MockExportService)(nil)

// ExportTasks implements service.ExportService
func (m *MockExportService) ExportTasks(ctx context.Context, w io.Writer, format tabular.Format) error {
	if m.ExportTasksFn != nil {
		return m.ExportTasksFn(ctx, w, format)
	}
	return m.DefaultError
}

// ExportUsers implements service.ExportService
func (m *MockExportService) ExportUsers(ctx context.Context, w io.Writer, format tabular.Format) error {
	if m.ExportUsersFn != nil {
		return m.ExportUsersFn(ctx, w, format)
	}
	return m.DefaultError
}

// MockUserService implements service.UserService for testing
type MockUserService struct {
	GetUserFn        func(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetUserBySSOIDFn func(ctx context.Context, ssoID string) (*domain.User, error)
	ListUsersFn      func(ctx context.Context) ([]*domain.User, error)
	CreateUserFn     func(ctx context.Context, user *domain.User) error

	User         *domain.User
	DefaultError error
}

var _ service.UserService = (*MockUserService)(nil)

// GetUser implements service.UserService
func (m *MockUserService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, userID)
	}
	return m.User, m.DefaultError
}

// GetUserBySSOID implements service.UserService
func (m *MockUserService) GetUserBySSOID(ctx context.Context, ssoID string) (*domain.User, error) {
	if m.GetUserBySSOIDFn != nil {
		return m.GetUserBySSOIDFn(ctx, ssoID)
	}
	return m.User, m.DefaultError
}

// ListUsers implements service.UserService
func (m *MockUserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	if m.ListUsersFn != nil {
		return m.ListUsersFn(ctx)
	}
	return nil, m.DefaultError
}

// CreateUser implements service.UserService
func (m *MockUserService) CreateUser(ctx context.Context, user *domain.User) error {
	if m.CreateUserFn != nil {
		return m.CreateUserFn(ctx, user)
	}
	return m.DefaultError
}

// MockTaskService implements service.TaskService for testing
type MockTaskService struct {
	ListTasksFn  func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	GetTaskFn    func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	CreateTaskFn func(ctx context.Context, task *domain.Task) error
	UpdateTaskFn func(ctx context.Context, taskID uuid.UUID, upd service.TaskUpdate) (*domain.Task, error)
	DeleteTaskFn func(ctx context.Context, taskID uuid.UUID) error

	DefaultError error
}

var _ service.TaskService = (*MockTaskService)(nil)

// ListTasks implements service.TaskService
func (m *MockTaskService) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	if m.ListTasksFn != nil {
		return m.ListTasksFn(ctx, filter)
	}
	return nil, m.DefaultError
}

// GetTask implements service.TaskService
func (m *MockTaskService) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	if m.GetTaskFn != nil {
		return m.GetTaskFn(ctx, taskID)
	}
	return nil, m.DefaultError
}

// CreateTask implements service.TaskService
func (m *MockTaskService) CreateTask(ctx context.Context, task *domain.Task) error {
	if m.CreateTaskFn != nil {
		return m.CreateTaskFn(ctx, task)
	}
	return m.DefaultError
}

// UpdateTask implements service.TaskService
func (m *MockTaskService) UpdateTask(ctx context.Context, taskID uuid.UUID, upd service.TaskUpdate) (*domain.Task, error) {
	if m.UpdateTaskFn != nil {
		return m.UpdateTaskFn(ctx, taskID, upd)
	}
	return nil, m.DefaultError
}

// DeleteTask implements service.TaskService
func (m *MockTaskService) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	if m.DeleteTaskFn != nil {
		return m.DeleteTaskFn(ctx, taskID)
	}
	return m.DefaultError
}
