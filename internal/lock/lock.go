// Package lock provides short-lived mutual exclusion keyed by string.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotAcquired is returned when the key stays held by someone else for every attempt.
var ErrNotAcquired = errors.New("lock held by another holder")

// Lease is a held lock. Release is safe to call once the lease has expired.
type Lease interface {
	Release(ctx context.Context) error
}

// Locker acquires keyed leases.
type Locker interface {
	Acquire(ctx context.Context, key string) (Lease, error)
}

// Retry controls how long Acquire waits for a held key.
type Retry struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry waits roughly half a second for a contended key.
var DefaultRetry = Retry{Attempts: 10, Delay: 50 * time.Millisecond}

func (r Retry) normalize() Retry {
	if r.Attempts < 1 {
		r.Attempts = 1
	}
	if r.Delay <= 0 {
		r.Delay = DefaultRetry.Delay
	}
	return r
}

// wait sleeps for the retry delay or until ctx is done.
func (r Retry) wait(ctx context.Context) error {
	t := time.NewTimer(r.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Local is an in-process Locker for a single replica and for tests.
type Local struct {
	mu    sync.Mutex
	held  map[string]struct{}
	retry Retry
}

// NewLocal returns an in-process Locker.
func NewLocal(retry Retry) *Local {
	return &Local{held: make(map[string]struct{}), retry: retry.normalize()}
}

// Acquire takes key, waiting per the retry policy.
func (l *Local) Acquire(ctx context.Context, key string) (Lease, error) {
	for i := 0; i < l.retry.Attempts; i++ {
		l.mu.Lock()
		if _, ok := l.held[key]; !ok {
			l.held[key] = struct{}{}
			l.mu.Unlock()
			return &localLease{owner: l, key: key}, nil
		}
		l.mu.Unlock()
		if i < l.retry.Attempts-1 {
			if err := l.retry.wait(ctx); err != nil {
				return nil, err
			}
		}
	}
	return nil, ErrNotAcquired
}

type localLease struct {
	owner *Local
	key   string
	once  sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		delete(l.owner.held, l.key)
		l.owner.mu.Unlock()
	})
	return nil
}
