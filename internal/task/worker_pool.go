package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue until the queue closes or the pool is cancelled.
type WorkerPool struct {
	taskQueue   TaskQueueReader
	workerCount int
	taskTimeout time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	// errorHandler is called when a task execution fails.
	// If nil, errors are only logged.
	errorHandler func(task Task, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount defaults to 1 when zero or negative.
	WorkerCount int

	// TaskTimeout bounds a single Execute call. Zero means no limit.
	TaskTimeout time.Duration
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
		TaskTimeout: 30 * time.Second,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		taskTimeout: config.TaskTimeout,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler sets the callback for task execution failures.
// It must be called before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool", "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Wait blocks until every worker has exited or ctx is done. When ctx ends
// first the pool is cancelled, which aborts running tasks.
func (p *WorkerPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

// Stop cancels the pool and waits for the workers to exit.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)
	tasks := p.taskQueue.GetChannel()

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-tasks:
			if !ok {
				p.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			p.processTask(task, id)
		}
	}
}

func (p *WorkerPool) processTask(task Task, workerID int) {
	log := p.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
		"worker_id", workerID,
	)

	ctx := p.ctx
	if p.taskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.taskTimeout)
		defer cancel()
	}

	log.Debug("processing task")
	if err := task.Execute(ctx); err != nil {
		log.Error("task execution failed", "error", err)
		if p.errorHandler != nil {
			p.errorHandler(task, err)
		}
		return
	}
	log.Debug("task completed successfully")
}
