package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"prospect-platform/backend/internal/platform/logger"
	"prospect-platform/backend/internal/platform/response"
)

// RequestLogger attaches a request-scoped logger (request id, method, path) to the context and logs
// one line per request. It must run after chi's RequestID.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := chimw.GetReqID(r.Context())
			if reqID != "" {
				w.Header().Set("X-Request-Id", reqID)
			}
			l := base.With(
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), l)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("client_ip", ClientIP(r)),
			}
			switch {
			case status >= 500:
				l.Error("request completed", fields...)
			case status >= 400:
				l.Warn("request completed", fields...)
			default:
				l.Info("request completed", fields...)
			}
		})
	}
}

// Recoverer turns a handler panic into a 500 failure envelope.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.FromContext(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
				)
				response.Failure(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
