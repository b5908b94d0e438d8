package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueue is a bounded in-memory queue. It satisfies both
// TaskQueueReader and TaskQueueWriter.
type TaskQueue struct {
	mu     sync.RWMutex
	tasks  chan Task
	logger *slog.Logger
	closed bool
}

var (
	_ TaskQueueReader = (*TaskQueue)(nil)
	_ TaskQueueWriter = (*TaskQueue)(nil)
)

// NewTaskQueue creates a queue holding at most size tasks.
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskQueue{
		tasks:  make(chan Task, size),
		logger: logger,
	}
}

// Enqueue implements TaskQueueWriter. It never blocks.
func (q *TaskQueue) Enqueue(task Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.logger.Debug("task enqueued",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// Close implements TaskQueueWriter. Tasks already queued stay readable.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
		q.logger.Info("task queue closed")
	}
}

// GetChannel implements TaskQueueReader.
func (q *TaskQueue) GetChannel() <-chan Task {
	return q.tasks
}

// Len reports the number of queued tasks.
func (q *TaskQueue) Len() int {
	return len(q.tasks)
}
