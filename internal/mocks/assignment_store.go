package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

// MockAssignmentStore implements store.AssignmentStore for testing.
type MockAssignmentStore struct {
	CreateRunFn      func(ctx context.Context, run *domain.AssignmentRun) error
	FinishRunFn      func(ctx context.Context, run *domain.AssignmentRun) error
	GetRunFn         func(ctx context.Context, id uuid.UUID) (*domain.AssignmentRun, error)
	CreateFn         func(ctx context.Context, a *domain.Assignment) error
	ListByRunFn      func(ctx context.Context, runID uuid.UUID) ([]*domain.Assignment, error)
	ListRecentFn     func(ctx context.Context, limit int) ([]*domain.Assignment, error)
	ListUnnotifiedFn func(ctx context.Context, limit int) ([]*domain.Assignment, error)
	MarkNotifiedFn   func(ctx context.Context, id uuid.UUID) error
	ReleaseLoadFn    func(ctx context.Context, taskID uuid.UUID, at time.Time) (*domain.Assignment, error)

	mu          sync.Mutex
	Runs        map[uuid.UUID]*domain.AssignmentRun
	Assignments []*domain.Assignment
}

var _ store.AssignmentStore = (*MockAssignmentStore)(nil)

// NewMockAssignmentStore creates an empty mock store.
func NewMockAssignmentStore() *MockAssignmentStore {
	return &MockAssignmentStore{Runs: make(map[uuid.UUID]*domain.AssignmentRun)}
}

// CreateRun implements the AssignmentStore interface
func (m *MockAssignmentStore) CreateRun(ctx context.Context, run *domain.AssignmentRun) error {
	if m.CreateRunFn != nil {
		return m.CreateRunFn(ctx, run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *run
	m.Runs[run.ID] = &c
	return nil
}

// FinishRun implements the AssignmentStore interface
func (m *MockAssignmentStore) FinishRun(ctx context.Context, run *domain.AssignmentRun) error {
	if m.FinishRunFn != nil {
		return m.FinishRunFn(ctx, run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Runs[run.ID]; !ok {
		return store.ErrRunNotFound
	}
	c := *run
	m.Runs[run.ID] = &c
	return nil
}

// GetRun implements the AssignmentStore interface
func (m *MockAssignmentStore) GetRun(ctx context.Context, id uuid.UUID) (*domain.AssignmentRun, error) {
	if m.GetRunFn != nil {
		return m.GetRunFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[id]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	return run, nil
}

// Create implements the AssignmentStore interface
func (m *MockAssignmentStore) Create(ctx context.Context, a *domain.Assignment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Assignments = append(m.Assignments, a)
	return nil
}

// ListByRun implements the AssignmentStore interface
func (m *MockAssignmentStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Assignment, error) {
	if m.ListByRunFn != nil {
		return m.ListByRunFn(ctx, runID)
	}
	return m.filter(func(a *domain.Assignment) bool { return a.RunID == runID }, 0), nil
}

// ListRecent implements the AssignmentStore interface
func (m *MockAssignmentStore) ListRecent(ctx context.Context, limit int) ([]*domain.Assignment, error) {
	if m.ListRecentFn != nil {
		return m.ListRecentFn(ctx, limit)
	}
	out := m.filter(func(*domain.Assignment) bool { return true }, 0)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AssignedAt.After(out[j].AssignedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListUnnotified implements the AssignmentStore interface
func (m *MockAssignmentStore) ListUnnotified(ctx context.Context, limit int) ([]*domain.Assignment, error) {
	if m.ListUnnotifiedFn != nil {
		return m.ListUnnotifiedFn(ctx, limit)
	}
	return m.filter(func(a *domain.Assignment) bool { return !a.NotificationSent }, limit), nil
}

// MarkNotified implements the AssignmentStore interface
func (m *MockAssignmentStore) MarkNotified(ctx context.Context, id uuid.UUID) error {
	if m.MarkNotifiedFn != nil {
		return m.MarkNotifiedFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Assignments {
		if a.ID == id {
			a.NotificationSent = true
			return nil
		}
	}
	return store.ErrAssignmentNotFound
}

// ReleaseLoad implements the AssignmentStore interface
func (m *MockAssignmentStore) ReleaseLoad(ctx context.Context, taskID uuid.UUID, at time.Time) (*domain.Assignment, error) {
	if m.ReleaseLoadFn != nil {
		return m.ReleaseLoadFn(ctx, taskID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.Assignments {
		if a.TaskID == taskID && a.IsActive() {
			released := at
			a.ReleasedAt = &released
			return a, nil
		}
	}
	return nil, store.ErrAssignmentNotFound
}

// WithTx implements the AssignmentStore interface and returns the same mock.
func (m *MockAssignmentStore) WithTx(tx *sql.Tx) store.AssignmentStore {
	return m
}

func (m *MockAssignmentStore) filter(keep func(*domain.Assignment) bool, limit int) []*domain.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Assignment
	for _, a := range m.Assignments {
		if !keep(a) {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
