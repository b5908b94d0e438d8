package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/domain/matching"
	"github.com/phrazzld/skillmatch-api/internal/events"
	"github.com/phrazzld/skillmatch-api/internal/generation"
	"github.com/phrazzld/skillmatch-api/internal/lock"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

// RunLockName is the lock held for the duration of an assignment run.
const RunLockName = "assignment-run"

// DefaultListLimit caps assignment listings when the caller gives no limit.
const DefaultListLimit = 50

// RunResult summarises one assignment run.
type RunResult struct {
	RunID               uuid.UUID                 `json:"run_id"`
	TotalTasks          int                       `json:"total_tasks"`
	AssignedTasks       int                       `json:"assigned_tasks"`
	UnassignedTasks     int                       `json:"unassigned_tasks"`
	NotificationsQueued int                       `json:"notifications_queued"`
	Rejected            []*domain.InputError      `json:"rejected"`
	Records             []domain.AssignmentRecord `json:"records"`
	Assignments         []*domain.Assignment      `json:"assignments"`
}

// AssignmentService runs the matching engine against stored users and tasks.
type AssignmentService interface {
	// Run assigns every pending, unassigned task. Only one run executes at
	// a time; a concurrent call fails with ErrRunInProgress.
	Run(ctx context.Context) (*RunResult, error)

	// Preview resolves the given records without persisting anything.
	// Malformed input fails the whole call.
	Preview(ctx context.Context, users []*domain.User, tasks []*domain.Task) ([]domain.AssignmentRecord, error)

	// ListAssignments returns the assignments of one run, or the most
	// recent assignments when runID is nil.
	ListAssignments(ctx context.Context, runID *uuid.UUID, limit int) ([]*domain.Assignment, error)

	// PendingNotifications returns payloads for assignments whose
	// notification has not been delivered yet.
	PendingNotifications(ctx context.Context, limit int) ([]events.AssignmentPayload, error)

	// MarkNotified records a delivered notification.
	MarkNotified(ctx context.Context, assignmentID uuid.UUID) error
}

// AssignmentServiceDeps holds the collaborators of the assignment service.
// Explainer, Emitter and Clock are optional.
type AssignmentServiceDeps struct {
	DB          store.TxBeginner
	Users       store.UserStore
	Tasks       store.TaskStore
	Assignments store.AssignmentStore
	Engine      matching.Service
	Locker      lock.Locker
	Explainer   generation.Explainer
	Emitter     events.EventEmitter
	Clock       func() time.Time
	Logger      *slog.Logger
}

type assignmentServiceImpl struct {
	db          store.TxBeginner
	users       store.UserStore
	tasks       store.TaskStore
	assignments store.AssignmentStore
	engine      matching.Service
	locker      lock.Locker
	explainer   generation.Explainer
	emitter     events.EventEmitter
	clock       func() time.Time
	logger      *slog.Logger
}

var _ AssignmentService = (*assignmentServiceImpl)(nil)

// NewAssignmentService creates an AssignmentService.
// It returns an error if any of the required dependencies are nil.
func NewAssignmentService(deps AssignmentServiceDeps) (AssignmentService, error) {
	required := []struct {
		name  string
		isNil bool
	}{
		{"db", deps.DB == nil},
		{"users", deps.Users == nil},
		{"tasks", deps.Tasks == nil},
		{"assignments", deps.Assignments == nil},
		{"engine", deps.Engine == nil},
		{"locker", deps.Locker == nil},
	}
	for _, r := range required {
		if r.isNil {
			return nil, fmt.Errorf("assignment service: %s cannot be nil", r.name)
		}
	}

	if deps.Explainer == nil {
		deps.Explainer = generation.TemplateExplainer{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &assignmentServiceImpl{
		db:          deps.DB,
		users:       deps.Users,
		tasks:       deps.Tasks,
		assignments: deps.Assignments,
		engine:      deps.Engine,
		locker:      deps.Locker,
		explainer:   deps.Explainer,
		emitter:     deps.Emitter,
		clock:       deps.Clock,
		logger:      deps.Logger.With(slog.String("component", "assignment_service")),
	}, nil
}

// Run implements AssignmentService.Run.
func (s *assignmentServiceImpl) Run(ctx context.Context) (*RunResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	release, err := s.locker.TryAcquire(ctx, RunLockName)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			log.Warn("assignment run rejected, another run holds the lock")
			return nil, ErrRunInProgress
		}
		return nil, NewServiceError("run", "failed to acquire run lock", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Error("failed to release run lock", slog.String("error", err.Error()))
		}
	}()

	users, err := s.users.ListAvailable(ctx)
	if err != nil {
		return nil, NewServiceError("run", "failed to load users", err)
	}
	tasks, err := s.tasks.ListAssignable(ctx)
	if err != nil {
		return nil, NewServiceError("run", "failed to load tasks", err)
	}
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}

	validUsers, validTasks, rejected := s.engine.Partition(users, tasks)
	for _, r := range rejected {
		log.Warn("skipping malformed record",
			slog.String("kind", r.Kind),
			slog.String("key", r.Key),
			slog.String("field", r.Field),
			slog.String("reason", r.Reason))
	}
	if len(validTasks) == 0 {
		return nil, NewServiceError("run", "every assignable task is malformed", ErrNoTasks)
	}

	now := s.clock()
	records, err := s.engine.Assign(validUsers, validTasks, now)
	if err != nil {
		return nil, NewServiceError("run", "matching engine rejected input", err)
	}

	run := domain.NewAssignmentRun(now)
	run.Tally(records, len(rejected))

	userByID := make(map[uuid.UUID]*domain.User, len(validUsers))
	for _, u := range validUsers {
		userByID[u.ID] = u
	}
	taskByID := make(map[uuid.UUID]*domain.Task, len(validTasks))
	for _, t := range validTasks {
		taskByID[t.ID] = t
	}

	assignments := make([]*domain.Assignment, 0, run.AssignedTasks)
	for _, rec := range records {
		if !rec.IsAssigned() {
			continue
		}
		reason := s.explain(ctx, userByID[rec.UserID], taskByID[rec.TaskID], rec)
		a, err := domain.NewAssignment(run.ID, rec, reason, now)
		if err != nil {
			return nil, NewServiceError("run", "engine produced an invalid assignment", err)
		}
		assignments = append(assignments, a)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txAssignments := s.assignments.WithTx(tx)
		txTasks := s.tasks.WithTx(tx)
		txUsers := s.users.WithTx(tx)

		if err := txAssignments.CreateRun(ctx, run); err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}
		for _, a := range assignments {
			if err := txAssignments.Create(ctx, a); err != nil {
				return fmt.Errorf("failed to save assignment for task %s: %w", a.TaskID, err)
			}
			if err := txTasks.ApplyAssignment(ctx, a.TaskID, a.UserID, a.Priority, a.Deadline); err != nil {
				return fmt.Errorf("failed to apply assignment to task %s: %w", a.TaskID, err)
			}
			if err := txUsers.AddWorkload(ctx, a.UserID, a.LoadCost); err != nil {
				return fmt.Errorf("failed to add workload for user %s: %w", a.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("assignment run rolled back", slog.String("error", err.Error()))
		return nil, NewServiceError("run", "failed to persist assignments", err)
	}

	run.NotificationsQueued = s.emitAssignments(ctx, assignments, userByID, taskByID)

	finished := s.clock().UTC()
	run.FinishedAt = &finished
	if err := s.assignments.FinishRun(ctx, run); err != nil {
		log.Error("failed to record run summary",
			slog.String("run_id", run.ID.String()),
			slog.String("error", err.Error()))
	}

	log.Info("assignment run completed",
		slog.String("run_id", run.ID.String()),
		slog.Int("total_tasks", run.TotalTasks),
		slog.Int("assigned_tasks", run.AssignedTasks),
		slog.Int("unassigned_tasks", run.UnassignedTasks),
		slog.Int("rejected_records", run.RejectedRecords),
		slog.Int("notifications_queued", run.NotificationsQueued))

	return &RunResult{
		RunID:               run.ID,
		TotalTasks:          run.TotalTasks,
		AssignedTasks:       run.AssignedTasks,
		UnassignedTasks:     run.UnassignedTasks,
		NotificationsQueued: run.NotificationsQueued,
		Rejected:            rejected,
		Records:             records,
		Assignments:         assignments,
	}, nil
}

func (s *assignmentServiceImpl) explain(
	ctx context.Context,
	user *domain.User,
	task *domain.Task,
	rec domain.AssignmentRecord,
) string {
	if user == nil || task == nil {
		return domain.DefaultAssignmentReason
	}
	reason, err := s.explainer.Explain(ctx, generation.NewExplainInput(user, task, rec))
	if err != nil || reason == "" {
		return domain.DefaultAssignmentReason
	}
	return reason
}

// emitAssignments publishes one assignment.created event per assignment
// and returns how many were accepted. Failures only affect notification.
func (s *assignmentServiceImpl) emitAssignments(
	ctx context.Context,
	assignments []*domain.Assignment,
	userByID map[uuid.UUID]*domain.User,
	taskByID map[uuid.UUID]*domain.Task,
) int {
	if s.emitter == nil {
		return 0
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	queued := 0
	for _, a := range assignments {
		event, err := events.NewAssignmentCreated(events.NewAssignmentPayload(a, taskByID[a.TaskID], userByID[a.UserID]))
		if err != nil {
			log.Error("failed to build assignment event",
				slog.String("assignment_id", a.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if err := s.emitter.EmitEvent(ctx, event); err != nil {
			log.Error("failed to emit assignment event",
				slog.String("assignment_id", a.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		queued++
	}
	return queued
}

// Preview implements AssignmentService.Preview.
func (s *assignmentServiceImpl) Preview(
	ctx context.Context,
	users []*domain.User,
	tasks []*domain.Task,
) ([]domain.AssignmentRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	records, err := s.engine.Assign(users, tasks, s.clock())
	if err != nil {
		log.Debug("preview rejected", slog.String("error", err.Error()))
		return nil, NewServiceError("preview", "invalid input", err)
	}
	return records, nil
}

// ListAssignments implements AssignmentService.ListAssignments.
func (s *assignmentServiceImpl) ListAssignments(
	ctx context.Context,
	runID *uuid.UUID,
	limit int,
) ([]*domain.Assignment, error) {
	if runID == nil {
		if limit <= 0 {
			limit = DefaultListLimit
		}
		list, err := s.assignments.ListRecent(ctx, limit)
		if err != nil {
			return nil, NewServiceError("list_assignments", "failed to list recent assignments", err)
		}
		return list, nil
	}

	if _, err := s.assignments.GetRun(ctx, *runID); err != nil {
		return nil, NewServiceError("list_assignments", "run not found", err)
	}
	list, err := s.assignments.ListByRun(ctx, *runID)
	if err != nil {
		return nil, NewServiceError("list_assignments", "failed to list run assignments", err)
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// PendingNotifications implements AssignmentService.PendingNotifications.
// Assignments whose task or user has since disappeared are skipped.
func (s *assignmentServiceImpl) PendingNotifications(
	ctx context.Context,
	limit int,
) ([]events.AssignmentPayload, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	pending, err := s.assignments.ListUnnotified(ctx, limit)
	if err != nil {
		return nil, NewServiceError("pending_notifications", "failed to list unnotified assignments", err)
	}

	payloads := make([]events.AssignmentPayload, 0, len(pending))
	for _, a := range pending {
		task, err := s.tasks.GetByID(ctx, a.TaskID)
		if err != nil {
			log.Warn("skipping notification for missing task",
				slog.String("assignment_id", a.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		user, err := s.users.GetByID(ctx, a.UserID)
		if err != nil {
			log.Warn("skipping notification for missing user",
				slog.String("assignment_id", a.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		payloads = append(payloads, events.NewAssignmentPayload(a, task, user))
	}

	log.Info("loaded pending notifications", slog.Int("count", len(payloads)))
	return payloads, nil
}

// MarkNotified implements AssignmentService.MarkNotified.
func (s *assignmentServiceImpl) MarkNotified(ctx context.Context, assignmentID uuid.UUID) error {
	if err := s.assignments.MarkNotified(ctx, assignmentID); err != nil {
		return NewServiceError("mark_notified", "failed to mark assignment notified", err)
	}
	return nil
}
