package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"prospect-platform/backend/internal/telemetry/domain"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), domain.NewEvent("api", "login", "u1", nil)); err != nil {
		t.Errorf("noop Emit: %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	if err := NewEventEmitter(provider).Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	cap := &recordCapture{}
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.Event{
		UserID:    "user1",
		EventType: domain.EventLeadGenerated,
		Source:    "api",
		Metadata:  map[string]string{"property_id": "p1"},
		CreatedAt: created,
	}
	if err := NewEventEmitterWithLogger(cap).Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := cap.rec

	if got := string(rec.Body().AsBytes()); got != `{"property_id":"p1"}` {
		t.Errorf("body = %q", got)
	}
	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	attrs := make(map[string]string)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{"user_id": "user1", "event_type": domain.EventLeadGenerated, "source": "api"}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attr %s = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_ZeroTimestampDefaultsToNow(t *testing.T) {
	cap := &recordCapture{}
	before := time.Now().Add(-time.Second)
	if err := NewEventEmitterWithLogger(cap).Emit(context.Background(), &domain.Event{EventType: "x"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if cap.rec.Timestamp().Before(before) {
		t.Errorf("timestamp = %v, want ~now", cap.rec.Timestamp())
	}
	if !cap.rec.Body().Empty() {
		t.Error("body should be empty without metadata")
	}
}
