// Package lock serialises work on a shared key, either inside one process or
// across processes through Redis.
package lock

import (
	"context"
	"sync"
)

// Locker runs fn while holding the lock named key.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Local is an in-process keyed mutex. Entries are dropped once no caller
// holds or waits for them.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localEntry
}

type localEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLocal creates an empty in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*localEntry)}
}

// WithLock implements Locker.
func (l *Local) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// held reports how many keys currently have holders or waiters.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Nop runs fn without any locking.
type Nop struct{}

// WithLock implements Locker.
func (Nop) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ Locker = (*Local)(nil)
	_ Locker = Nop{}
)
