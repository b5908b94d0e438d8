package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user.
	// Returns ErrSSOIDExists or ErrEmailExists on conflicts and
	// ErrInvalidEntity when the user fails domain validation.
	Create(ctx context.Context, user *domain.User) error

	// Upsert inserts the user, or updates the existing user with the same
	// SSO id. It reports whether a new row was created.
	Upsert(ctx context.Context, user *domain.User) (created bool, err error)

	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySSOID retrieves a user by SSO id.
	// Returns ErrUserNotFound if the user does not exist.
	GetBySSOID(ctx context.Context, ssoID string) (*domain.User, error)

	// List returns all users ordered by name.
	List(ctx context.Context) ([]*domain.User, error)

	// ListAvailable returns users with is_available set, ordered by ID.
	ListAvailable(ctx context.Context) ([]*domain.User, error)

	// AddWorkload changes a user's current workload by delta percent,
	// kept within [0, 100]. A negative delta gives workload back.
	// Returns ErrUserNotFound if the user does not exist.
	AddWorkload(ctx context.Context, id uuid.UUID, delta float64) error

	// WithTx returns a UserStore bound to the transaction.
	WithTx(tx *sql.Tx) UserStore
}
