package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

const (
	runColumns = `id, started_at, finished_at, total_tasks, assigned_tasks,
		unassigned_tasks, rejected_records, notifications_queued`
	assignmentColumns = `id, run_id, task_id, user_id, confidence_score, priority,
		deadline, reason, assigned_by, notification_sent, assigned_at, load_cost, released_at`
)

// defaultRecentLimit caps ListRecent when no positive limit is given.
const defaultRecentLimit = 50

// PostgresAssignmentStore implements the store.AssignmentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresAssignmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAssignmentStore creates a new PostgreSQL implementation of the AssignmentStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresAssignmentStore(db store.DBTX, logger *slog.Logger) *PostgresAssignmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAssignmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "assignment_store")),
	}
}

// Ensure PostgresAssignmentStore implements store.AssignmentStore interface
var _ store.AssignmentStore = (*PostgresAssignmentStore)(nil)

// CreateRun implements store.AssignmentStore.CreateRun
func (s *PostgresAssignmentStore) CreateRun(ctx context.Context, run *domain.AssignmentRun) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `INSERT INTO assignment_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt,
		nullableTime(run.FinishedAt),
		run.TotalTasks,
		run.AssignedTasks,
		run.UnassignedTasks,
		run.RejectedRecords,
		run.NotificationsQueued,
	)
	if err != nil {
		log.Error("failed to create assignment run",
			slog.String("error", err.Error()),
			slog.String("run_id", run.ID.String()))
		return MapError(err)
	}

	log.Debug("assignment run created", slog.String("run_id", run.ID.String()))
	return nil
}

// FinishRun implements store.AssignmentStore.FinishRun
func (s *PostgresAssignmentStore) FinishRun(ctx context.Context, run *domain.AssignmentRun) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE assignment_runs
		SET finished_at = $1, total_tasks = $2, assigned_tasks = $3,
			unassigned_tasks = $4, rejected_records = $5, notifications_queued = $6
		WHERE id = $7
	`
	result, err := s.db.ExecContext(ctx, query,
		nullableTime(run.FinishedAt),
		run.TotalTasks,
		run.AssignedTasks,
		run.UnassignedTasks,
		run.RejectedRecords,
		run.NotificationsQueued,
		run.ID,
	)
	if err != nil {
		log.Error("failed to finish assignment run",
			slog.String("error", err.Error()),
			slog.String("run_id", run.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrRunNotFound); err != nil {
		return err
	}

	log.Info("assignment run finished",
		slog.String("run_id", run.ID.String()),
		slog.Int("assigned", run.AssignedTasks),
		slog.Int("unassigned", run.UnassignedTasks))
	return nil
}

// GetRun implements store.AssignmentStore.GetRun
func (s *PostgresAssignmentStore) GetRun(ctx context.Context, id uuid.UUID) (*domain.AssignmentRun, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		run      domain.AssignmentRun
		finished sql.NullTime
	)
	query := `SELECT ` + runColumns + ` FROM assignment_runs WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.StartedAt,
		&finished,
		&run.TotalTasks,
		&run.AssignedTasks,
		&run.UnassignedTasks,
		&run.RejectedRecords,
		&run.NotificationsQueued,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("assignment run not found", slog.String("run_id", id.String()))
			return nil, store.ErrRunNotFound
		}
		log.Error("failed to get assignment run",
			slog.String("error", err.Error()),
			slog.String("run_id", id.String()))
		return nil, MapError(err)
	}
	run.FinishedAt = timePtr(finished)
	return &run, nil
}

// Create implements store.AssignmentStore.Create
func (s *PostgresAssignmentStore) Create(ctx context.Context, a *domain.Assignment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := a.Validate(); err != nil {
		log.Warn("assignment validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", a.TaskID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `INSERT INTO assignments (` + assignmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.RunID,
		a.TaskID,
		a.UserID,
		a.ConfidenceScore,
		a.Priority,
		nullableTime(a.Deadline),
		a.Reason,
		a.AssignedBy,
		a.NotificationSent,
		a.AssignedAt,
		a.LoadCost,
		nullableTime(a.ReleasedAt),
	)
	if err != nil {
		log.Error("failed to create assignment",
			slog.String("error", err.Error()),
			slog.String("task_id", a.TaskID.String()),
			slog.String("user_id", a.UserID.String()))
		return MapError(err)
	}

	log.Debug("assignment created",
		slog.String("assignment_id", a.ID.String()),
		slog.String("task_id", a.TaskID.String()),
		slog.String("user_id", a.UserID.String()))
	return nil
}

// ListByRun implements store.AssignmentStore.ListByRun
func (s *PostgresAssignmentStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments
		WHERE run_id = $1 ORDER BY assigned_at, id`
	return s.list(ctx, query, runID)
}

// ListRecent implements store.AssignmentStore.ListRecent
func (s *PostgresAssignmentStore) ListRecent(ctx context.Context, limit int) ([]*domain.Assignment, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query := `SELECT ` + assignmentColumns + ` FROM assignments
		ORDER BY assigned_at DESC, id LIMIT $1`
	return s.list(ctx, query, limit)
}

// ListUnnotified implements store.AssignmentStore.ListUnnotified
func (s *PostgresAssignmentStore) ListUnnotified(ctx context.Context, limit int) ([]*domain.Assignment, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	query := `SELECT ` + assignmentColumns + ` FROM assignments
		WHERE NOT notification_sent ORDER BY assigned_at, id LIMIT $1`
	return s.list(ctx, query, limit)
}

func (s *PostgresAssignmentStore) list(ctx context.Context, query string, args ...any) ([]*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query assignments", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			log.Error("failed to scan assignment row", slog.String("error", err.Error()))
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// MarkNotified implements store.AssignmentStore.MarkNotified
func (s *PostgresAssignmentStore) MarkNotified(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET notification_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to mark assignment notified",
			slog.String("error", err.Error()),
			slog.String("assignment_id", id.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrAssignmentNotFound)
}

// ReleaseLoad implements store.AssignmentStore.ReleaseLoad
// Only an unreleased row matches, so a load cost is given back at most once.
func (s *PostgresAssignmentStore) ReleaseLoad(
	ctx context.Context,
	taskID uuid.UUID,
	at time.Time,
) (*domain.Assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `UPDATE assignments SET released_at = $1
		WHERE task_id = $2 AND released_at IS NULL
		RETURNING ` + assignmentColumns
	a, err := scanAssignment(s.db.QueryRowContext(ctx, query, at.UTC(), taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no active assignment to release", slog.String("task_id", taskID.String()))
			return nil, store.ErrAssignmentNotFound
		}
		log.Error("failed to release assignment load",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, MapError(err)
	}

	log.Debug("assignment load released",
		slog.String("assignment_id", a.ID.String()),
		slog.String("user_id", a.UserID.String()),
		slog.Float64("load_cost", a.LoadCost))
	return a, nil
}

// WithTx implements store.AssignmentStore.WithTx
func (s *PostgresAssignmentStore) WithTx(tx *sql.Tx) store.AssignmentStore {
	return &PostgresAssignmentStore{db: tx, logger: s.logger}
}

func scanAssignment(row rowScanner) (*domain.Assignment, error) {
	var (
		a        domain.Assignment
		deadline sql.NullTime
		released sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.RunID,
		&a.TaskID,
		&a.UserID,
		&a.ConfidenceScore,
		&a.Priority,
		&deadline,
		&a.Reason,
		&a.AssignedBy,
		&a.NotificationSent,
		&a.AssignedAt,
		&a.LoadCost,
		&released,
	)
	if err != nil {
		return nil, err
	}
	a.Deadline = timePtr(deadline)
	a.ReleasedAt = timePtr(released)
	return &a, nil
}
