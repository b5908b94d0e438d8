package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

// MockUserStore implements store.UserStore for testing. Without function
// overrides it behaves like an in-memory store keyed by user ID.
type MockUserStore struct {
	// Function fields for customizable behavior
	CreateFn        func(ctx context.Context, user *domain.User) error
	UpsertFn        func(ctx context.Context, user *domain.User) (bool, error)
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetBySSOIDFn    func(ctx context.Context, ssoID string) (*domain.User, error)
	ListFn          func(ctx context.Context) ([]*domain.User, error)
	ListAvailableFn func(ctx context.Context) ([]*domain.User, error)
	AddWorkloadFn   func(ctx context.Context, id uuid.UUID, delta float64) error

	// Data for default implementation
	mu    sync.Mutex
	Users map[uuid.UUID]*domain.User

	// WorkloadAdded records every AddWorkload delta by user.
	WorkloadAdded map[uuid.UUID]float64
}

var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates a new mock store holding users.
func NewMockUserStore(users ...*domain.User) *MockUserStore {
	m := &MockUserStore{
		Users:         make(map[uuid.UUID]*domain.User, len(users)),
		WorkloadAdded: make(map[uuid.UUID]float64),
	}
	for _, u := range users {
		m.Users[u.ID] = u
	}
	return m
}

// Create implements the UserStore interface
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.Users {
		if u.SSOID == user.SSOID {
			return store.ErrSSOIDExists
		}
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	m.Users[user.ID] = user
	return nil
}

// Upsert implements the UserStore interface
func (m *MockUserStore) Upsert(ctx context.Context, user *domain.User) (bool, error) {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.Users {
		if u.Email == user.Email && u.SSOID != user.SSOID {
			return false, store.ErrEmailExists
		}
	}
	_, exists := m.Users[user.ID]
	m.Users[user.ID] = user
	return !exists, nil
}

// GetByID implements the UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.Users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

// GetBySSOID implements the UserStore interface
func (m *MockUserStore) GetBySSOID(ctx context.Context, ssoID string) (*domain.User, error) {
	if m.GetBySSOIDFn != nil {
		return m.GetBySSOIDFn(ctx, ssoID)
	}
	return m.GetByID(ctx, domain.UserIDFromSSO(ssoID))
}

// List implements the UserStore interface
func (m *MockUserStore) List(ctx context.Context) ([]*domain.User, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return m.sorted(func(*domain.User) bool { return true }), nil
}

// ListAvailable implements the UserStore interface
func (m *MockUserStore) ListAvailable(ctx context.Context) ([]*domain.User, error) {
	if m.ListAvailableFn != nil {
		return m.ListAvailableFn(ctx)
	}
	return m.sorted(func(u *domain.User) bool { return u.IsAvailable }), nil
}

// AddWorkload implements the UserStore interface
func (m *MockUserStore) AddWorkload(ctx context.Context, id uuid.UUID, delta float64) error {
	if m.AddWorkloadFn != nil {
		return m.AddWorkloadFn(ctx, id, delta)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.Users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	user.CurrentWorkload = min(domain.MaxWorkload, max(0, user.CurrentWorkload+delta))
	m.WorkloadAdded[id] += delta
	return nil
}

// WithTx implements the UserStore interface and returns the same mock.
func (m *MockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

func (m *MockUserStore) sorted(keep func(*domain.User) bool) []*domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.User, 0, len(m.Users))
	for _, u := range m.Users {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SSOID < out[j].SSOID })
	return out
}
