package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"prospect-platform/backend/internal/platform/background"
	"prospect-platform/backend/internal/telemetry/domain"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (e *recordingEmitter) Emit(_ context.Context, ev *domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func TestRequestTelemetry(t *testing.T) {
	em := &recordingEmitter{}
	runner := background.NewRunner(nil, 0)
	r := chi.NewRouter()
	r.Use(RequestTelemetry(em, runner, map[string]bool{"/healthz": true}))
	r.Get("/leads/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/leads/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	runner.Wait()

	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.events) != 1 {
		t.Fatalf("events = %d, want 1", len(em.events))
	}
	ev := em.events[0]
	if ev.EventType != domain.EventHTTPRequest {
		t.Errorf("EventType = %q", ev.EventType)
	}
	if ev.Metadata["route"] != "/leads/{id}" {
		t.Errorf("route = %q, want /leads/{id}", ev.Metadata["route"])
	}
	if ev.Metadata["status_code"] != "200" {
		t.Errorf("status_code = %q, want 200", ev.Metadata["status_code"])
	}
}
