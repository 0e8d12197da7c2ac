package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_DomainCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "test")

	c.LoginAttempt("success")
	c.LoginAttempt("success")
	c.LoginAttempt("bad_password")
	c.LeadGenerated()
	c.LeadConflict()

	if got := testutil.ToFloat64(c.logins.WithLabelValues("success")); got != 2 {
		t.Errorf("login success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.logins.WithLabelValues("bad_password")); got != 1 {
		t.Errorf("login bad_password = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.leads); got != 1 {
		t.Errorf("leads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.dupLeads); got != 1 {
		t.Errorf("duplicate leads = %v, want 1", got)
	}
}

func TestCollector_MiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg, "test")

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Handle("/metrics", c.Handler())

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	if got := testutil.ToFloat64(c.requests.WithLabelValues(http.MethodGet, "/items/{id}", "202")); got != 2 {
		t.Errorf("requests for /items/{id} = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Error("metrics output should contain http_requests_total")
	}
}
