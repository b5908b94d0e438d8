package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// TaskFilter narrows task listings. Zero values match everything.
type TaskFilter struct {
	Status domain.TaskStatus
	Limit  int
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task.
	// Returns ErrTaskTitleExists when a pending task already has the title.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks matching the filter, newest first.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// ListAssignable returns pending tasks without an assignee, oldest first.
	ListAssignable(ctx context.Context) ([]*domain.Task, error)

	// ApplyAssignment assigns a pending task to a user, moving it to
	// in-progress with the predicted priority and deadline.
	// Returns ErrTaskAlreadyAssigned if the task is no longer assignable.
	ApplyAssignment(
		ctx context.Context,
		taskID uuid.UUID,
		userID uuid.UUID,
		priority domain.Priority,
		deadline *time.Time,
	) error

	// Update saves the editable fields, status, assignee, deadline and
	// completion time of a task whose stored status is still from.
	// Returns ErrTaskStatusChanged when the stored status differs and
	// ErrTaskTitleExists on a pending title collision.
	Update(ctx context.Context, task *domain.Task, from domain.TaskStatus) error

	// Delete removes a task.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a TaskStore bound to the transaction.
	WithTx(tx *sql.Tx) TaskStore
}
