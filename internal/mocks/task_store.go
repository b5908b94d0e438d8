package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing. Without function
// overrides it keeps tasks in memory in insertion order.
type MockTaskStore struct {
	CreateFn          func(ctx context.Context, task *domain.Task) error
	GetByIDFn         func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListFn            func(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)
	ListAssignableFn  func(ctx context.Context) ([]*domain.Task, error)
	ApplyAssignmentFn func(ctx context.Context, taskID, userID uuid.UUID, p domain.Priority, deadline *time.Time) error
	UpdateFn          func(ctx context.Context, task *domain.Task, from domain.TaskStatus) error
	DeleteFn          func(ctx context.Context, id uuid.UUID) error

	mu    sync.Mutex
	Tasks []*domain.Task
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates a new mock store holding tasks.
func NewMockTaskStore(tasks ...*domain.Task) *MockTaskStore {
	return &MockTaskStore{Tasks: append([]*domain.Task(nil), tasks...)}
}

// Create implements the TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.Tasks {
		if t.Status == domain.TaskStatusPending && domain.NormalizeTitle(t.Title) == domain.NormalizeTitle(task.Title) {
			return store.ErrTaskTitleExists
		}
	}
	m.Tasks = append(m.Tasks, task)
	return nil
}

// GetByID implements the TaskStore interface
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.find(id); t != nil {
		return t, nil
	}
	return nil, store.ErrTaskNotFound
}

// List implements the TaskStore interface
func (m *MockTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Task
	for _, t := range m.Tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// ListAssignable implements the TaskStore interface
func (m *MockTaskStore) ListAssignable(ctx context.Context) ([]*domain.Task, error) {
	if m.ListAssignableFn != nil {
		return m.ListAssignableFn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Task
	for _, t := range m.Tasks {
		if t.IsAssignable() {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// ApplyAssignment implements the TaskStore interface
func (m *MockTaskStore) ApplyAssignment(
	ctx context.Context,
	taskID uuid.UUID,
	userID uuid.UUID,
	priority domain.Priority,
	deadline *time.Time,
) error {
	if m.ApplyAssignmentFn != nil {
		return m.ApplyAssignmentFn(ctx, taskID, userID, priority, deadline)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.find(taskID)
	if t == nil || !t.IsAssignable() {
		return store.ErrTaskAlreadyAssigned
	}
	assignee := userID
	t.AssignedTo = &assignee
	t.Priority = priority
	t.Deadline = deadline
	t.Status = domain.TaskStatusInProgress
	return nil
}

// Update implements the TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task, from domain.TaskStatus) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task, from)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.Tasks {
		if t.ID != task.ID {
			continue
		}
		if t.Status != from {
			return store.ErrTaskStatusChanged
		}
		m.Tasks[i] = task.Clone()
		return nil
	}
	return store.ErrTaskStatusChanged
}

// Delete implements the TaskStore interface
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, t := range m.Tasks {
		if t.ID == id {
			m.Tasks = append(m.Tasks[:i], m.Tasks[i+1:]...)
			return nil
		}
	}
	return store.ErrTaskNotFound
}

// WithTx implements the TaskStore interface and returns the same mock.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

func (m *MockTaskStore) find(id uuid.UUID) *domain.Task {
	for _, t := range m.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}
