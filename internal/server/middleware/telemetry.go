package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"prospect-platform/backend/internal/platform/background"
	"prospect-platform/backend/internal/telemetry"
	"prospect-platform/backend/internal/telemetry/domain"
)

const telemetrySource = "http_middleware"

// RequestTelemetry emits an http_request event after each request on the background runner.
// Paths in skip are not emitted. A nil emitter disables it.
func RequestTelemetry(emitter telemetry.EventEmitter, runner *background.Runner, skip map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if skip[r.URL.Path] {
				return
			}
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// The caller identity is set further down the chain and is not visible here.
			event := domain.NewEvent(telemetrySource, domain.EventHTTPRequest, "", map[string]string{
				"method":      r.Method,
				"route":       route,
				"status_code": strconv.Itoa(status),
				"duration_ms": strconv.FormatInt(time.Since(start).Milliseconds(), 10),
				"client_ip":   ClientIP(r),
				"request_id":  chimw.GetReqID(r.Context()),
			})
			telemetry.EmitAsync(r.Context(), runner, emitter, event)
		})
	}
}
