package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/events"
)

// Notifier delivers an assignment notification.
type Notifier interface {
	NotifyAssignment(ctx context.Context, p events.AssignmentPayload) error
}

// NotificationMarker records that an assignment's notification was delivered.
type NotificationMarker interface {
	MarkNotified(ctx context.Context, assignmentID uuid.UUID) error
}

// NotificationTask notifies one assignee. Delivery failures leave the
// assignment untouched so the notification is retried on the next start.
type NotificationTask struct {
	id       uuid.UUID
	payload  events.AssignmentPayload
	notifier Notifier
	marker   NotificationMarker
	logger   *slog.Logger

	mu     sync.RWMutex
	status TaskStatus
}

var _ Task = (*NotificationTask)(nil)

// ID implements Task.
func (t *NotificationTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *NotificationTask) Type() string { return TaskTypeAssignmentNotification }

// Payload implements Task.
func (t *NotificationTask) Payload() []byte {
	b, err := json.Marshal(t.payload)
	if err != nil {
		return nil
	}
	return b
}

// Status implements Task.
func (t *NotificationTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// AssignmentID returns the assignment this task notifies about.
func (t *NotificationTask) AssignmentID() uuid.UUID { return t.payload.AssignmentID }

func (t *NotificationTask) setStatus(s TaskStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

// Execute implements Task.
func (t *NotificationTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	if err := t.notifier.NotifyAssignment(ctx, t.payload); err != nil {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("notify assignment %s: %w", t.payload.AssignmentID, err)
	}

	if t.marker != nil {
		if err := t.marker.MarkNotified(ctx, t.payload.AssignmentID); err != nil {
			// The mail went out; a failed flag only risks a duplicate on restart.
			t.logger.Warn("notification sent but not recorded",
				"assignment_id", t.payload.AssignmentID,
				"error", err)
		}
	}

	t.setStatus(TaskStatusCompleted)
	return nil
}

// NotificationTaskFactory builds NotificationTasks sharing one notifier.
type NotificationTaskFactory struct {
	notifier Notifier
	marker   NotificationMarker
	logger   *slog.Logger
}

// NewNotificationTaskFactory creates a factory. marker may be nil.
func NewNotificationTaskFactory(notifier Notifier, marker NotificationMarker, logger *slog.Logger) *NotificationTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationTaskFactory{
		notifier: notifier,
		marker:   marker,
		logger:   logger.With("component", "notification_task"),
	}
}

// CreateTask returns a pending task for p.
func (f *NotificationTaskFactory) CreateTask(p events.AssignmentPayload) (*NotificationTask, error) {
	if p.AssignmentID == uuid.Nil {
		return nil, errors.New("assignment id cannot be empty")
	}
	if f.notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}
	return &NotificationTask{
		id:       uuid.New(),
		payload:  p,
		notifier: f.notifier,
		marker:   f.marker,
		logger:   f.logger,
		status:   TaskStatusPending,
	}, nil
}

// RecoverNotifications adapts a payload source into a RecoverFunc.
func (f *NotificationTaskFactory) RecoverNotifications(
	pending func(ctx context.Context) ([]events.AssignmentPayload, error),
) RecoverFunc {
	return func(ctx context.Context) ([]Task, error) {
		payloads, err := pending(ctx)
		if err != nil {
			return nil, err
		}
		tasks := make([]Task, 0, len(payloads))
		for _, p := range payloads {
			t, err := f.CreateTask(p)
			if err != nil {
				f.logger.Error("skipping unrecoverable notification",
					"assignment_id", p.AssignmentID,
					"error", err)
				continue
			}
			tasks = append(tasks, t)
		}
		return tasks, nil
	}
}
