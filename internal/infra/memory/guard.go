package memory

import (
	"context"
	"sync"
)

// AttemptGuard is an in-process at-most-once marker keyed by attempt ID. It
// survives re-invocations within one process; use the redis guard when saves
// must stay idempotent across restarts or instances.
type AttemptGuard struct {
	mu        sync.Mutex
	processed map[string]struct{}
}

func NewAttemptGuard() *AttemptGuard {
	return &AttemptGuard{processed: make(map[string]struct{})}
}

func (g *AttemptGuard) Begin(_ context.Context, attemptID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.processed[attemptID]; ok {
		return false, nil
	}
	g.processed[attemptID] = struct{}{}
	return true, nil
}

func (g *AttemptGuard) Release(_ context.Context, attemptID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.processed, attemptID)
	return nil
}

// UserLocker serializes per-user pipelines with one mutex per user ID.
type UserLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUserLocker() *UserLocker {
	return &UserLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *UserLocker) Lock(_ context.Context, userID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock, nil
}
