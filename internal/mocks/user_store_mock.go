package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockUserStore is a mock of store.UserStore interface for use with testify/mock
type TestifyMockUserStore struct {
	mock.Mock
}

var _ store.UserStore = (*TestifyMockUserStore)(nil)

// Create is a mock implementation of store.UserStore.Create
func (m *TestifyMockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// Upsert is a mock implementation of store.UserStore.Upsert
func (m *TestifyMockUserStore) Upsert(ctx context.Context, user *domain.User) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

// GetByID is a mock implementation of store.UserStore.GetByID
func (m *TestifyMockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// GetBySSOID is a mock implementation of store.UserStore.GetBySSOID
func (m *TestifyMockUserStore) GetBySSOID(ctx context.Context, ssoID string) (*domain.User, error) {
	args := m.Called(ctx, ssoID)
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// List is a mock implementation of store.UserStore.List
func (m *TestifyMockUserStore) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if users, ok := args.Get(0).([]*domain.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

// ListAvailable is a mock implementation of store.UserStore.ListAvailable
func (m *TestifyMockUserStore) ListAvailable(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if users, ok := args.Get(0).([]*domain.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

// AddWorkload is a mock implementation of store.UserStore.AddWorkload
func (m *TestifyMockUserStore) AddWorkload(ctx context.Context, id uuid.UUID, delta float64) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

// WithTx is a mock implementation of store.UserStore.WithTx
func (m *TestifyMockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	args := m.Called(tx)
	if ret, ok := args.Get(0).(store.UserStore); ok {
		return ret
	}
	return m
}
