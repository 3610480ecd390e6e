// Package commitlock serializes the commit step of concurrent executions.
// Building runs in parallel in disjoint workspaces, but the final move into
// the host's single global namespace is a critical section.
package commitlock

import (
	"context"
	"fmt"
	"sync"
)

// UnlockFunc releases a held lock.
type UnlockFunc func(ctx context.Context) error

// Locker acquires a named lock, blocking until it is held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (UnlockFunc, error)
}

// Local is an in-process Locker. The zero value is ready to use.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal creates an in-process Locker.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = make(map[string]chan struct{})
	}
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock acquires key. It gives up with ctx's error if ctx ends first.
func (l *Local) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for commit lock %q: %w", key, ctx.Err())
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}, nil
}
