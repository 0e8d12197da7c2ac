package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunner_RunsTasks(t *testing.T) {
	r := NewRunner(nil, 0)
	var n atomic.Int32
	for i := 0; i < 5; i++ {
		r.Go(context.Background(), "count", func(ctx context.Context) error {
			n.Add(1)
			return nil
		})
	}
	r.Wait()
	if got := n.Load(); got != 5 {
		t.Errorf("ran %d tasks, want 5", got)
	}
}

func TestRunner_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRunner(zap.New(core), time.Second)
	r.Go(context.Background(), "last_login", func(ctx context.Context) error {
		return errors.New("store down")
	})
	r.Wait()
	entries := logs.FilterMessage("background task failed").All()
	if len(entries) != 1 {
		t.Fatalf("failure log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["task"]; got != "last_login" {
		t.Errorf("task field = %v, want last_login", got)
	}
}

func TestRunner_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewRunner(zap.New(core), time.Second)
	r.Go(context.Background(), "boom", func(ctx context.Context) error {
		panic("unexpected")
	})
	r.Wait()
	if logs.FilterMessage("background task panicked").Len() != 1 {
		t.Error("panic should be logged")
	}
}

type ctxKey struct{}

func TestRunner_ContextIgnoresCallerCancellation(t *testing.T) {
	r := NewRunner(nil, time.Second)
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "req-1"))
	cancel()

	var (
		ctxErr      error
		hasDeadline bool
		value       any
	)
	r.Go(parent, "deadline", func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		ctxErr = ctx.Err()
		value = ctx.Value(ctxKey{})
		return nil
	})
	r.Wait()
	if ctxErr != nil {
		t.Errorf("task context already done: %v", ctxErr)
	}
	if !hasDeadline {
		t.Error("task context should carry the runner timeout")
	}
	if value != "req-1" {
		t.Errorf("value = %v, want req-1 carried from parent", value)
	}
}

func TestRunner_NilRunsInline(t *testing.T) {
	var r *Runner
	ran := false
	r.Go(context.Background(), "inline", func(ctx context.Context) error {
		ran = true
		return nil
	})
	r.Wait()
	if !ran {
		t.Error("nil runner should run the task inline")
	}
}
