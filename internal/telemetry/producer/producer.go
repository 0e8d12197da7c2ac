// Package producer defines the interface for emitting telemetry events to a broker.
package producer

import (
	"context"

	"prospect-platform/backend/internal/telemetry/domain"
)

// Producer emits telemetry events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from the background runner.
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}
