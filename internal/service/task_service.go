package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

// TaskService provides task listing, creation, update and removal.
type TaskService interface {
	// ListTasks returns tasks matching the filter, newest first
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error)

	// GetTask retrieves a task by its ID
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// CreateTask stores a new pending task
	CreateTask(ctx context.Context, task *domain.Task) error

	// UpdateTask applies the set fields of upd. A task leaving in-progress
	// gives its assignee's workload back.
	UpdateTask(ctx context.Context, taskID uuid.UUID, upd TaskUpdate) (*domain.Task, error)

	// DeleteTask removes a task and releases any load it still holds
	DeleteTask(ctx context.Context, taskID uuid.UUID) error
}

// TaskUpdate lists the task fields a caller may change. Nil fields are
// left as they are.
type TaskUpdate struct {
	Title           *string
	Description     *string
	StoryPoints     *int
	DifficultyLevel *int
	EstimatedHours  *float64
	RequiredSkills  []string
	Project         *string
	Tags            []string
	Status          *domain.TaskStatus
}

func (u TaskUpdate) apply(task *domain.Task) {
	if u.Title != nil {
		task.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		task.Description = strings.TrimSpace(*u.Description)
	}
	if u.StoryPoints != nil {
		task.StoryPoints = *u.StoryPoints
	}
	if u.DifficultyLevel != nil {
		task.DifficultyLevel = *u.DifficultyLevel
	}
	if u.EstimatedHours != nil {
		task.EstimatedHours = *u.EstimatedHours
	}
	if u.RequiredSkills != nil {
		task.RequiredSkills = u.RequiredSkills
	}
	if u.Project != nil {
		task.Project = *u.Project
	}
	if u.Tags != nil {
		task.Tags = u.Tags
	}
}

// TaskServiceDeps holds the collaborators of the task service.
// Clock and Logger are optional.
type TaskServiceDeps struct {
	DB          store.TxBeginner
	Tasks       store.TaskStore
	Users       store.UserStore
	Assignments store.AssignmentStore
	Clock       func() time.Time
	Logger      *slog.Logger
}

// TaskServiceImpl implements the TaskService interface
type TaskServiceImpl struct {
	db              store.TxBeginner
	taskStore       store.TaskStore
	userStore       store.UserStore
	assignmentStore store.AssignmentStore
	clock           func() time.Time
	logger          *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the stores or the database is nil.
func NewTaskService(deps TaskServiceDeps) (TaskService, error) {
	switch {
	case deps.DB == nil:
		return nil, errors.New("task service: db cannot be nil")
	case deps.Tasks == nil:
		return nil, errors.New("task service: tasks cannot be nil")
	case deps.Users == nil:
		return nil, errors.New("task service: users cannot be nil")
	case deps.Assignments == nil:
		return nil, errors.New("task service: assignments cannot be nil")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &TaskServiceImpl{
		db:              deps.DB,
		taskStore:       deps.Tasks,
		userStore:       deps.Users,
		assignmentStore: deps.Assignments,
		clock:           deps.Clock,
		logger:          deps.Logger.With("component", "task_service"),
	}, nil
}

// ListTasks returns tasks matching the filter, newest first
func (s *TaskServiceImpl) ListTasks(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	tasks, err := s.taskStore.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list tasks",
			"error", err,
			"status", filter.Status)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves a task by its ID
func (s *TaskServiceImpl) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) {
			s.logger.Error("failed to retrieve task",
				"error", err,
				"task_id", taskID)
		}
		return nil, fmt.Errorf("failed to retrieve task: %w", err)
	}
	return task, nil
}

// CreateTask stores a new pending task. Status and assignee are
// owned by assignment runs and reset here.
func (s *TaskServiceImpl) CreateTask(ctx context.Context, task *domain.Task) error {
	task.Status = domain.TaskStatusPending
	task.AssignedTo = nil
	if task.Project == "" {
		task.Project = domain.DefaultProject
	}

	if err := task.Validate(); err != nil {
		return err
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		if errors.Is(err, store.ErrTaskTitleExists) {
			s.logger.Debug("attempted to create task with existing title",
				"title", task.Title)
		} else {
			s.logger.Error("failed to save task to database",
				"error", err,
				"title", task.Title)
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task created successfully",
		"task_id", task.ID,
		"title", task.Title)

	return nil
}

// UpdateTask applies upd inside one transaction. The stored row is only
// written if its status is still the one read here.
func (s *TaskServiceImpl) UpdateTask(ctx context.Context, taskID uuid.UUID, upd TaskUpdate) (*domain.Task, error) {
	var updated *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.taskStore.WithTx(tx)

		current, err := txTasks.GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		task := current.Clone()
		from := task.Status
		now := s.clock().UTC()

		upd.apply(task)
		task.UpdatedAt = now
		if upd.Status != nil {
			if err := task.TransitionTo(*upd.Status, now); err != nil {
				return err
			}
		}
		if err := task.Validate(); err != nil {
			return err
		}
		if err := txTasks.Update(ctx, task, from); err != nil {
			return err
		}

		if from == domain.TaskStatusInProgress && task.Status != domain.TaskStatusInProgress {
			if err := s.releaseLoad(ctx, tx, taskID, now); err != nil {
				return err
			}
		}
		updated = task
		return nil
	})
	if err != nil {
		if !errors.Is(err, store.ErrTaskNotFound) && !errors.Is(err, domain.ErrValidation) &&
			!errors.Is(err, domain.ErrInvalidTransition) {
			s.logger.Error("failed to update task",
				"error", err,
				"task_id", taskID)
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.logger.Info("task updated",
		"task_id", taskID,
		"status", updated.Status)
	return updated, nil
}

// DeleteTask removes a task. An active assignment gives its load back
// before the row goes, since assignments are removed with the task.
func (s *TaskServiceImpl) DeleteTask(ctx context.Context, taskID uuid.UUID) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.releaseLoad(ctx, tx, taskID, s.clock().UTC()); err != nil {
			return err
		}
		return s.taskStore.WithTx(tx).Delete(ctx, taskID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.logger.Info("task deleted", "task_id", taskID)
	return nil
}

// releaseLoad marks the task's active assignment released and subtracts
// its load cost from the assignee. A task with no active assignment is
// left alone.
func (s *TaskServiceImpl) releaseLoad(ctx context.Context, tx *sql.Tx, taskID uuid.UUID, now time.Time) error {
	a, err := s.assignmentStore.WithTx(tx).ReleaseLoad(ctx, taskID, now)
	if errors.Is(err, store.ErrAssignmentNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release assignment: %w", err)
	}
	if a.LoadCost == 0 {
		return nil
	}
	if err := s.userStore.WithTx(tx).AddWorkload(ctx, a.UserID, -a.LoadCost); err != nil {
		return fmt.Errorf("failed to release workload for user %s: %w", a.UserID, err)
	}
	s.logger.Debug("workload released",
		"task_id", taskID,
		"user_id", a.UserID,
		"load_cost", a.LoadCost)
	return nil
}
