package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler remembers the events it handled.
type recordingHandler struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func TestNewAssignmentCreated(t *testing.T) {
	t.Parallel()

	deadline := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	task := &domain.Task{ID: uuid.New(), Title: "Build API", Description: "REST", Project: "Payments"}
	user := &domain.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com"}
	a := &domain.Assignment{
		ID: uuid.New(), RunID: uuid.New(), TaskID: task.ID, UserID: user.ID,
		ConfidenceScore: 0.66, Priority: domain.PriorityHigh, Deadline: &deadline,
		Reason: domain.DefaultAssignmentReason,
	}

	event, err := NewAssignmentCreated(NewAssignmentPayload(a, task, user))
	require.NoError(t, err)
	assert.Equal(t, TypeAssignmentCreated, event.Type)
	assert.NotEqual(t, uuid.Nil, event.ID)

	var got AssignmentPayload
	require.NoError(t, event.UnmarshalPayload(&got))
	assert.Equal(t, a.ID, got.AssignmentID)
	assert.Equal(t, "ada@example.com", got.UserEmail)
	assert.Equal(t, domain.DefaultStoryPoints, got.StoryPoints)
	require.NotNil(t, got.Deadline)
	assert.True(t, deadline.Equal(*got.Deadline))
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewEvent("bad", make(chan int))
	assert.Error(t, err)
}

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	event, err := NewEvent("test", map[string]string{"k": "v"})
	require.NoError(t, err)

	t.Run("no handlers", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, NewInMemoryEventEmitter(logger).EmitEvent(context.Background(), event))
	})

	t.Run("all handlers receive the event", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		h1, h2 := &recordingHandler{}, &recordingHandler{}
		emitter.RegisterHandler(h1)
		emitter.RegisterHandler(h2)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, []*Event{event}, h1.events)
		assert.Equal(t, []*Event{event}, h2.events)
	})

	t.Run("failures are joined and do not stop delivery", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		errA, errB := errors.New("a"), errors.New("b")
		failing1 := &recordingHandler{err: errA}
		ok := &recordingHandler{}
		failing2 := &recordingHandler{err: errB}
		emitter.RegisterHandler(failing1)
		emitter.RegisterHandler(ok)
		emitter.RegisterHandler(failing2)

		err := emitter.EmitEvent(context.Background(), event)
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
		assert.Len(t, ok.events, 1)
	})

	t.Run("handler func", func(t *testing.T) {
		t.Parallel()
		emitter := NewInMemoryEventEmitter(logger)
		called := false
		emitter.RegisterHandler(HandlerFunc(func(context.Context, *Event) error {
			called = true
			return nil
		}))
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.True(t, called)
	})
}
