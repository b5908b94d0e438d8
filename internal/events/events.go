package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
)

// TypeAssignmentCreated is emitted once per persisted assignment.
const TypeAssignmentCreated = "assignment.created"

// Event is a typed envelope with a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent wraps payload in an event of the given type.
func NewEvent(eventType string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AssignmentPayload describes a new assignment for notification.
type AssignmentPayload struct {
	AssignmentID    uuid.UUID       `json:"assignment_id"`
	RunID           uuid.UUID       `json:"run_id"`
	TaskID          uuid.UUID       `json:"task_id"`
	TaskTitle       string          `json:"task_title"`
	TaskDescription string          `json:"task_description"`
	Project         string          `json:"project"`
	StoryPoints     int             `json:"story_points"`
	UserID          uuid.UUID       `json:"user_id"`
	UserName        string          `json:"user_name"`
	UserEmail       string          `json:"user_email"`
	Priority        domain.Priority `json:"priority"`
	Deadline        *time.Time      `json:"deadline,omitempty"`
	Confidence      float64         `json:"confidence"`
	Reason          string          `json:"reason"`
}

// NewAssignmentPayload builds the payload for a persisted assignment.
func NewAssignmentPayload(a *domain.Assignment, task *domain.Task, user *domain.User) AssignmentPayload {
	return AssignmentPayload{
		AssignmentID:    a.ID,
		RunID:           a.RunID,
		TaskID:          task.ID,
		TaskTitle:       task.Title,
		TaskDescription: task.Description,
		Project:         task.Project,
		StoryPoints:     task.EffectiveStoryPoints(),
		UserID:          user.ID,
		UserName:        user.Name,
		UserEmail:       user.Email,
		Priority:        a.Priority,
		Deadline:        a.Deadline,
		Confidence:      a.ConfidenceScore,
		Reason:          a.Reason,
	}
}

// NewAssignmentCreated returns an assignment.created event.
func NewAssignmentCreated(p AssignmentPayload) (*Event, error) {
	return NewEvent(TypeAssignmentCreated, p)
}

// EventHandler processes events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter publishes events to registered handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}
