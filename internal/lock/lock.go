// Package lock provides the mutual exclusion used to keep assignment runs
// from overlapping, either inside one process or across replicas.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned when another holder owns the lock.
var ErrHeld = errors.New("lock is held by another run")

// ReleaseFunc gives a lock back. It is safe to call more than once.
type ReleaseFunc func(ctx context.Context) error

// Locker acquires a named lock without waiting.
type Locker interface {
	TryAcquire(ctx context.Context, name string) (ReleaseFunc, error)
}

// InProcess is a Locker scoped to the current process.
type InProcess struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewInProcess returns an empty in-process locker.
func NewInProcess() *InProcess {
	return &InProcess{held: make(map[string]bool)}
}

var _ Locker = (*InProcess)(nil)

// TryAcquire implements Locker.
func (l *InProcess) TryAcquire(_ context.Context, name string) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[name] {
		return nil, ErrHeld
	}
	l.held[name] = true

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
