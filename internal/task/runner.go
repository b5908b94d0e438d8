package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RecoverFunc returns tasks left unfinished by a previous process.
type RecoverFunc func(ctx context.Context) ([]Task, error)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// TaskTimeout bounds a single task execution
	TaskTimeout time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
		TaskTimeout: 30 * time.Second,
	}
}

// TaskRunner owns a queue and the worker pool draining it.
type TaskRunner struct {
	queue     *TaskQueue
	pool      *WorkerPool
	recoverFn RecoverFunc
	logger    *slog.Logger
}

// NewTaskRunner creates a runner. recoverFn may be nil.
func NewTaskRunner(config TaskRunnerConfig, recoverFn RecoverFunc, logger *slog.Logger) *TaskRunner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "task_runner")

	queue := NewTaskQueue(config.QueueSize, logger)
	pool := NewWorkerPool(queue, WorkerPoolConfig{
		WorkerCount: config.WorkerCount,
		TaskTimeout: config.TaskTimeout,
	}, logger)
	pool.SetErrorHandler(func(task Task, err error) {
		logger.Error("task execution failed",
			"task_id", task.ID(),
			"task_type", task.Type(),
			"error", err)
	})

	return &TaskRunner{
		queue:     queue,
		pool:      pool,
		recoverFn: recoverFn,
		logger:    logger,
	}
}

// SetErrorHandler replaces the default logging error handler.
func (r *TaskRunner) SetErrorHandler(handler func(task Task, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Submit queues a task without blocking.
func (r *TaskRunner) Submit(_ context.Context, task Task) error {
	if err := r.queue.Enqueue(task); err != nil {
		return fmt.Errorf("submit task %s: %w", task.ID(), err)
	}
	return nil
}

// Start requeues recovered tasks and starts the workers. Recovered tasks
// that do not fit in the queue are logged and left for the next start.
func (r *TaskRunner) Start(ctx context.Context) error {
	if r.recoverFn != nil {
		tasks, err := r.recoverFn(ctx)
		if err != nil {
			return fmt.Errorf("failed to recover tasks: %w", err)
		}

		requeued := 0
		for _, t := range tasks {
			if err := r.queue.Enqueue(t); err != nil {
				r.logger.Error("failed to requeue recovered task",
					"task_id", t.ID(),
					"task_type", t.Type(),
					"error", err)
				continue
			}
			requeued++
		}
		r.logger.Info("recovered unfinished tasks",
			"found", len(tasks),
			"requeued", requeued)
	}

	r.pool.Start()
	return nil
}

// Stop closes the queue and lets the workers drain it until ctx ends.
func (r *TaskRunner) Stop(ctx context.Context) error {
	r.queue.Close()
	err := r.pool.Wait(ctx)
	if err != nil {
		r.logger.Warn("task runner stopped before the queue drained",
			"remaining", r.queue.Len(),
			"error", err)
	} else {
		r.logger.Info("task runner stopped")
	}
	return err
}
