package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"prospect-platform/backend/internal/telemetry"
	"prospect-platform/backend/internal/telemetry/domain"
)

// instrumentationName scopes the log records this package emits.
const instrumentationName = "prospect.telemetry"

// RecordEmitter is the part of an OTel logger the adapter needs.
type RecordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via provider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger(instrumentationName)}
}

// NewEventEmitterWithLogger wraps an existing record emitter.
func NewEventEmitterWithLogger(logger RecordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Event) error { return nil }

type otelEmitter struct {
	logger RecordEmitter
}

// Emit converts the event to an OTel log record. Metadata becomes the JSON body.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	if len(event.Metadata) > 0 {
		body, err := json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
		rec.SetBody(otellog.BytesValue(body))
	}
	if event.UserID != "" {
		rec.AddAttributes(otellog.String("user_id", event.UserID))
	}
	if event.EventType != "" {
		rec.AddAttributes(otellog.String("event_type", event.EventType))
	}
	if event.Source != "" {
		rec.AddAttributes(otellog.String("source", event.Source))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
