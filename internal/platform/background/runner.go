// Package background runs best-effort side effects outside the request path.
package background

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout is the max time allowed for a single task.
const DefaultTimeout = 5 * time.Second

// Runner starts fire-and-forget tasks. A task keeps the values of the context it was started from
// (request id, client IP, span) but not its cancellation, and gets its own timeout. Failures are
// logged and never reach the caller.
type Runner struct {
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRunner returns a Runner. A nil log uses a no-op logger; timeout <= 0 uses DefaultTimeout.
func NewRunner(log *zap.Logger, timeout time.Duration) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{log: log, timeout: timeout}
}

// Go runs fn in a goroutine. name labels the failure log line.
func (r *Runner) Go(parent context.Context, name string, fn func(ctx context.Context) error) {
	if fn == nil {
		return
	}
	if parent == nil {
		parent = context.Background()
	}
	detached := context.WithoutCancel(parent)
	if r == nil {
		// Unwired runner: keep the side effect but run it inline.
		ctx, cancel := context.WithTimeout(detached, DefaultTimeout)
		defer cancel()
		_ = fn(ctx)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(detached, r.timeout)
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("background task panicked", zap.String("task", name), zap.Any("panic", p))
			}
		}()
		if err := fn(ctx); err != nil {
			r.log.Warn("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

// Wait blocks until every started task has returned. Called on shutdown and in tests.
func (r *Runner) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
