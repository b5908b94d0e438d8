package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/skillmatch-api/internal/events"
)

// Submitter accepts tasks for background execution. *TaskRunner implements it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// NotificationEventHandler turns assignment.created events into
// notification tasks.
type NotificationEventHandler struct {
	factory *NotificationTaskFactory
	runner  Submitter
	logger  *slog.Logger
}

var _ events.EventHandler = (*NotificationEventHandler)(nil)

// NewNotificationEventHandler wires a factory to a runner.
func NewNotificationEventHandler(
	factory *NotificationTaskFactory,
	runner Submitter,
	logger *slog.Logger,
) *NotificationEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "notification_event_handler"),
	}
}

// HandleEvent implements events.EventHandler. Other event types are ignored.
func (h *NotificationEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeAssignmentCreated {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.AssignmentPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	t, err := h.factory.CreateTask(payload)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"assignment_id", payload.AssignmentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", t.ID(),
			"assignment_id", payload.AssignmentID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Debug("notification task submitted",
		"task_id", t.ID(),
		"assignment_id", payload.AssignmentID,
		"event_id", event.ID)
	return nil
}
