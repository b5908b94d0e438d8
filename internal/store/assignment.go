package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// AssignmentStore defines the interface for assignment and run persistence.
type AssignmentStore interface {
	// CreateRun records the start of an assignment run.
	CreateRun(ctx context.Context, run *domain.AssignmentRun) error

	// FinishRun stores the final counters and finish time of a run.
	// Returns ErrRunNotFound if the run does not exist.
	FinishRun(ctx context.Context, run *domain.AssignmentRun) error

	// GetRun retrieves a run by ID.
	// Returns ErrRunNotFound if the run does not exist.
	GetRun(ctx context.Context, id uuid.UUID) (*domain.AssignmentRun, error)

	// Create saves an assignment. The assignment must belong to an existing run.
	Create(ctx context.Context, assignment *domain.Assignment) error

	// ListByRun returns the assignments of a run ordered by assignment time.
	ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Assignment, error)

	// ListRecent returns the most recent assignments, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Assignment, error)

	// ListUnnotified returns assignments whose notification has not been
	// delivered yet, oldest first.
	ListUnnotified(ctx context.Context, limit int) ([]*domain.Assignment, error)

	// MarkNotified flags an assignment's notification as delivered.
	// Returns ErrAssignmentNotFound if the assignment does not exist.
	MarkNotified(ctx context.Context, id uuid.UUID) error

	// ReleaseLoad marks the task's active assignment as released at the
	// given time and returns it, so its load cost can be given back.
	// Returns ErrAssignmentNotFound if the task has no active assignment.
	ReleaseLoad(ctx context.Context, taskID uuid.UUID, at time.Time) (*domain.Assignment, error)

	// WithTx returns an AssignmentStore bound to the transaction.
	WithTx(tx *sql.Tx) AssignmentStore
}
