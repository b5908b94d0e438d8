package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

// UserService provides read and create operations for assignable users.
type UserService interface {
	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// GetUserBySSOID retrieves a user by their SSO identifier
	GetUserBySSOID(ctx context.Context, ssoID string) (*domain.User, error)

	// ListUsers returns every user ordered by name
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// CreateUser stores a new user after validating it
	CreateUser(ctx context.Context, user *domain.User) error
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	logger    *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userStore store.UserStore, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		logger:    logger.With("component", "user_service"),
	}
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to retrieve user",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	s.logger.Debug("retrieved user successfully",
		"user_id", userID)

	return user, nil
}

// GetUserBySSOID retrieves a user by their SSO identifier
func (s *UserServiceImpl) GetUserBySSOID(ctx context.Context, ssoID string) (*domain.User, error) {
	user, err := s.userStore.GetBySSOID(ctx, ssoID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("user not found by sso id",
				"sso_id", ssoID)
		} else {
			s.logger.Error("failed to retrieve user by sso id",
				"error", err,
				"sso_id", ssoID)
		}
		return nil, fmt.Errorf("failed to retrieve user by sso id: %w", err)
	}

	return user, nil
}

// ListUsers returns every user ordered by name
func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userStore.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateUser stores a new user after validating it
func (s *UserServiceImpl) CreateUser(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.logger.Debug("attempted to create duplicate user",
				"sso_id", user.SSOID,
				"email", user.Email)
		} else {
			s.logger.Error("failed to save user to database",
				"error", err,
				"sso_id", user.SSOID)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created successfully",
		"user_id", user.ID,
		"sso_id", user.SSOID)

	return nil
}
