package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// funcTask is a Task whose Execute is supplied by the test.
type funcTask struct {
	id      uuid.UUID
	execute func(ctx context.Context) error
}

func newFuncTask(fn func(ctx context.Context) error) *funcTask {
	return &funcTask{id: uuid.New(), execute: fn}
}

func (t *funcTask) ID() uuid.UUID                     { return t.id }
func (t *funcTask) Type() string                      { return "func" }
func (t *funcTask) Payload() []byte                   { return nil }
func (t *funcTask) Status() TaskStatus                { return TaskStatusPending }
func (t *funcTask) Execute(ctx context.Context) error { return t.execute(ctx) }

type fakeNotifier struct {
	mu       sync.Mutex
	payloads []events.AssignmentPayload
	err      error
}

func (n *fakeNotifier) NotifyAssignment(_ context.Context, p events.AssignmentPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.payloads = append(n.payloads, p)
	return nil
}

type fakeMarker struct {
	mu     sync.Mutex
	marked []uuid.UUID
	err    error
}

func (m *fakeMarker) MarkNotified(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, id)
	return m.err
}

func testPayload() events.AssignmentPayload {
	return events.AssignmentPayload{
		AssignmentID: uuid.New(),
		TaskTitle:    "Build API",
		UserEmail:    "ada@example.com",
		Priority:     domain.PriorityHigh,
	}
}

func TestTaskQueue(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(1, setupTestLogger())
	noop := func(context.Context) error { return nil }

	require.NoError(t, q.Enqueue(newFuncTask(noop)))
	assert.ErrorIs(t, q.Enqueue(newFuncTask(noop)), ErrQueueFull)
	assert.Equal(t, 1, q.Len())

	q.Close()
	q.Close()
	assert.ErrorIs(t, q.Enqueue(newFuncTask(noop)), ErrQueueClosed)

	_, ok := <-q.GetChannel()
	assert.True(t, ok, "queued task survives close")
	_, ok = <-q.GetChannel()
	assert.False(t, ok)
}

func TestNewWorkerPool_DefaultsWorkerCount(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(NewTaskQueue(1, nil), WorkerPoolConfig{WorkerCount: n}, setupTestLogger())
		assert.Equal(t, 1, pool.workerCount)
	}
}

func TestWorkerPool_ProcessesAndReportsErrors(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(10, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 3}, setupTestLogger())

	var (
		done   atomic.Int32
		failed atomic.Int32
	)
	pool.SetErrorHandler(func(Task, error) { failed.Add(1) })
	pool.Start()

	for i := 0; i < 6; i++ {
		fail := i%2 == 0
		require.NoError(t, q.Enqueue(newFuncTask(func(context.Context) error {
			done.Add(1)
			if fail {
				return errors.New("boom")
			}
			return nil
		})))
	}
	q.Close()

	require.NoError(t, pool.Wait(context.Background()))
	assert.Equal(t, int32(6), done.Load())
	assert.Equal(t, int32(3), failed.Load())
}

func TestWorkerPool_TaskTimeout(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue(1, setupTestLogger())
	pool := NewWorkerPool(q, WorkerPoolConfig{WorkerCount: 1, TaskTimeout: 10 * time.Millisecond}, setupTestLogger())

	errCh := make(chan error, 1)
	pool.SetErrorHandler(func(_ Task, err error) { errCh <- err })
	pool.Start()

	require.NoError(t, q.Enqueue(newFuncTask(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	q.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("task was not cancelled")
	}
	pool.Stop()
}

func TestNotificationTask_Execute(t *testing.T) {
	t.Parallel()

	t.Run("notifies and marks", func(t *testing.T) {
		t.Parallel()
		notifier, marker := &fakeNotifier{}, &fakeMarker{}
		f := NewNotificationTaskFactory(notifier, marker, setupTestLogger())
		p := testPayload()

		task, err := f.CreateTask(p)
		require.NoError(t, err)
		assert.Equal(t, TaskStatusPending, task.Status())
		assert.Equal(t, TaskTypeAssignmentNotification, task.Type())
		assert.Contains(t, string(task.Payload()), p.AssignmentID.String())

		require.NoError(t, task.Execute(context.Background()))
		assert.Equal(t, TaskStatusCompleted, task.Status())
		assert.Len(t, notifier.payloads, 1)
		assert.Equal(t, []uuid.UUID{p.AssignmentID}, marker.marked)
	})

	t.Run("delivery failure is not marked", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("smtp down")
		marker := &fakeMarker{}
		f := NewNotificationTaskFactory(&fakeNotifier{err: boom}, marker, setupTestLogger())

		task, err := f.CreateTask(testPayload())
		require.NoError(t, err)
		assert.ErrorIs(t, task.Execute(context.Background()), boom)
		assert.Equal(t, TaskStatusFailed, task.Status())
		assert.Empty(t, marker.marked)
	})

	t.Run("marker failure still completes", func(t *testing.T) {
		t.Parallel()
		f := NewNotificationTaskFactory(&fakeNotifier{}, &fakeMarker{err: errors.New("db")}, setupTestLogger())

		task, err := f.CreateTask(testPayload())
		require.NoError(t, err)
		assert.NoError(t, task.Execute(context.Background()))
		assert.Equal(t, TaskStatusCompleted, task.Status())
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()
		f := NewNotificationTaskFactory(&fakeNotifier{}, nil, setupTestLogger())
		_, err := f.CreateTask(events.AssignmentPayload{})
		assert.Error(t, err)
	})
}

func TestNotificationEventHandler(t *testing.T) {
	t.Parallel()

	newRunner := func() *TaskRunner {
		return NewTaskRunner(TaskRunnerConfig{WorkerCount: 1, QueueSize: 4}, nil, setupTestLogger())
	}
	factory := NewNotificationTaskFactory(&fakeNotifier{}, nil, setupTestLogger())

	t.Run("submits assignment events", func(t *testing.T) {
		t.Parallel()
		runner := newRunner()
		h := NewNotificationEventHandler(factory, runner, setupTestLogger())

		event, err := events.NewAssignmentCreated(testPayload())
		require.NoError(t, err)
		require.NoError(t, h.HandleEvent(context.Background(), event))
		assert.Equal(t, 1, runner.queue.Len())
	})

	t.Run("ignores other events", func(t *testing.T) {
		t.Parallel()
		runner := newRunner()
		h := NewNotificationEventHandler(factory, runner, setupTestLogger())

		event, err := events.NewEvent("something.else", nil)
		require.NoError(t, err)
		require.NoError(t, h.HandleEvent(context.Background(), event))
		assert.Zero(t, runner.queue.Len())
	})

	t.Run("bad payload", func(t *testing.T) {
		t.Parallel()
		h := NewNotificationEventHandler(factory, newRunner(), setupTestLogger())
		event := &events.Event{ID: uuid.New(), Type: events.TypeAssignmentCreated, Payload: []byte("{")}
		assert.Error(t, h.HandleEvent(context.Background(), event))
	})
}

func TestTaskRunner_RecoversAndDrains(t *testing.T) {
	t.Parallel()

	notifier, marker := &fakeNotifier{}, &fakeMarker{}
	factory := NewNotificationTaskFactory(notifier, marker, setupTestLogger())

	pending := []events.AssignmentPayload{testPayload(), {}, testPayload()}
	recoverFn := factory.RecoverNotifications(func(context.Context) ([]events.AssignmentPayload, error) {
		return pending, nil
	})

	runner := NewTaskRunner(TaskRunnerConfig{WorkerCount: 2, QueueSize: 10}, recoverFn, setupTestLogger())
	require.NoError(t, runner.Start(context.Background()))

	task, err := factory.CreateTask(testPayload())
	require.NoError(t, err)
	require.NoError(t, runner.Submit(context.Background(), task))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runner.Stop(ctx))

	assert.Len(t, notifier.payloads, 3, "the empty payload is skipped")
	assert.Len(t, marker.marked, 3)
	assert.ErrorIs(t, runner.Submit(context.Background(), task), ErrQueueClosed)
}

func TestTaskRunner_RecoverError(t *testing.T) {
	t.Parallel()

	boom := errors.New("db down")
	runner := NewTaskRunner(DefaultTaskRunnerConfig(), func(context.Context) ([]Task, error) {
		return nil, boom
	}, setupTestLogger())

	assert.ErrorIs(t, runner.Start(context.Background()), boom)
}
