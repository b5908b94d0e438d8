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

const taskColumns = `id, title, description, story_points, difficulty_level, required_skills,
		project, tags, estimated_hours, status, priority, assigned_to, deadline,
		completed_at, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
// Zero story points, difficulty and project are stored as their defaults.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("title", task.Title))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	skills, err := encodeJSON(task.RequiredSkills)
	if err != nil {
		return err
	}
	tags, err := encodeJSON(task.Tags)
	if err != nil {
		return err
	}

	project := task.Project
	if project == "" {
		project = domain.DefaultProject
	}
	status := task.Status
	if status == "" {
		status = domain.TaskStatusPending
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.EffectiveStoryPoints(),
		task.EffectiveDifficulty(),
		skills,
		project,
		tags,
		task.EstimatedHours,
		status,
		nullablePriority(task.Priority),
		uuidPtrToNull(task.AssignedTo),
		nullableTime(task.Deadline),
		nullableTime(task.CompletedAt),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("title", task.Title))
		return MapUniqueViolation(err, tasksPendingTitleConstraint, store.ErrTaskTitleExists)
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("title", task.Title))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}
	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.list(ctx, query, args...)
}

// ListAssignable implements store.TaskStore.ListAssignable
func (s *PostgresTaskStore) ListAssignable(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE status = 'pending' AND assigned_to IS NULL
		ORDER BY created_at, id`
	return s.list(ctx, query)
}

func (s *PostgresTaskStore) list(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("tasks listed", slog.Int("count", len(tasks)))
	return tasks, nil
}

// ApplyAssignment implements store.TaskStore.ApplyAssignment
// The update only matches tasks that are still pending and unassigned,
// so a concurrent run cannot assign the same task twice.
func (s *PostgresTaskStore) ApplyAssignment(
	ctx context.Context,
	taskID uuid.UUID,
	userID uuid.UUID,
	priority domain.Priority,
	deadline *time.Time,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET assigned_to = $1, priority = $2, deadline = $3,
			status = 'in-progress', updated_at = $4
		WHERE id = $5 AND status = 'pending' AND assigned_to IS NULL
	`
	result, err := s.db.ExecContext(ctx, query,
		userID,
		nullablePriority(priority),
		nullableTime(deadline),
		time.Now().UTC(),
		taskID,
	)
	if err != nil {
		log.Error("failed to apply assignment",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("user_id", userID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTaskAlreadyAssigned); err != nil {
		log.Warn("task no longer assignable", slog.String("task_id", taskID.String()))
		return err
	}

	log.Debug("assignment applied",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", userID.String()),
		slog.String("priority", string(priority)))
	return nil
}

// Update implements store.TaskStore.Update
// The status guard keeps a concurrent run or update from being overwritten.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task, from domain.TaskStatus) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	skills, err := encodeJSON(task.RequiredSkills)
	if err != nil {
		return err
	}
	tags, err := encodeJSON(task.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, story_points = $3, difficulty_level = $4,
			required_skills = $5, project = $6, tags = $7, estimated_hours = $8,
			status = $9, priority = $10, assigned_to = $11, deadline = $12,
			completed_at = $13, updated_at = $14
		WHERE id = $15 AND status = $16
	`
	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.EffectiveStoryPoints(),
		task.EffectiveDifficulty(),
		skills,
		task.Project,
		tags,
		task.EstimatedHours,
		task.Status,
		nullablePriority(task.Priority),
		uuidPtrToNull(task.AssignedTo),
		nullableTime(task.Deadline),
		nullableTime(task.CompletedAt),
		task.UpdatedAt,
		task.ID,
		from,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapUniqueViolation(err, tasksPendingTitleConstraint, store.ErrTaskTitleExists)
	}
	if err := CheckRowsAffected(result, store.ErrTaskStatusChanged); err != nil {
		log.Warn("task status changed before update",
			slog.String("task_id", task.ID.String()),
			slog.String("expected_status", string(from)))
		return err
	}

	log.Info("task updated",
		slog.String("task_id", task.ID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task       domain.Task
		skills     []byte
		tags       []byte
		priority   sql.NullString
		assignedTo uuid.NullUUID
		deadline   sql.NullTime
		completed  sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.StoryPoints,
		&task.DifficultyLevel,
		&skills,
		&task.Project,
		&tags,
		&task.EstimatedHours,
		&task.Status,
		&priority,
		&assignedTo,
		&deadline,
		&completed,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if task.RequiredSkills, err = decodeJSON[string](skills); err != nil {
		return nil, err
	}
	if task.Tags, err = decodeJSON[string](tags); err != nil {
		return nil, err
	}
	if priority.Valid {
		task.Priority = domain.Priority(priority.String)
	}
	if assignedTo.Valid {
		id := assignedTo.UUID
		task.AssignedTo = &id
	}
	task.Deadline = timePtr(deadline)
	task.CompletedAt = timePtr(completed)
	return &task, nil
}

func nullablePriority(p domain.Priority) any {
	if p == "" {
		return nil
	}
	return string(p)
}

func uuidPtrToNull(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
