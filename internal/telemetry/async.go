package telemetry

import (
	"context"

	"prospect-platform/backend/internal/platform/background"
	"prospect-platform/backend/internal/telemetry/domain"
)

// EmitAsync hands event to emitter on the background runner so the request is never blocked.
// emitter and event may be nil; then nothing is started.
func EmitAsync(ctx context.Context, runner *background.Runner, emitter EventEmitter, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	runner.Go(ctx, "telemetry."+event.EventType, func(ctx context.Context) error {
		return emitter.Emit(ctx, event)
	})
}
