// Package metrics collects Prometheus metrics for the HTTP API and domain events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives domain events from the services.
type Recorder interface {
	LoginAttempt(outcome string)
	LeadGenerated()
	LeadConflict()
}

// Collector is the Prometheus implementation of Recorder plus the HTTP request metrics.
type Collector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	logins   *prometheus.CounterVec
	leads    prometheus.Counter
	dupLeads prometheus.Counter
	gatherer prometheus.Gatherer
}

// NewCollector registers the collectors with reg. reg must also implement prometheus.Gatherer
// for Handler to expose anything (a *prometheus.Registry does).
func NewCollector(reg prometheus.Registerer, service string) *Collector {
	constLabels := prometheus.Labels{"service": service}
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "prospect_login_attempts_total",
			Help:        "Login attempts by outcome",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		leads: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "prospect_leads_generated_total",
			Help:        "Leads created",
			ConstLabels: constLabels,
		}),
		dupLeads: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "prospect_leads_conflict_total",
			Help:        "Lead generation attempts rejected because an active lead exists",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(c.requests, c.duration, c.logins, c.leads, c.dupLeads)
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}
	return c
}

// LoginAttempt counts a login by outcome (success, not_found, inactive, bad_password, error).
func (c *Collector) LoginAttempt(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// LeadGenerated counts one created lead.
func (c *Collector) LeadGenerated() {
	c.leads.Inc()
}

// LeadConflict counts one rejected duplicate.
func (c *Collector) LeadConflict() {
	c.dupLeads.Inc()
}

// Middleware records request count and latency labelled by the chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		c.requests.WithLabelValues(labels...).Inc()
		c.duration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// Noop discards domain events. Used when metrics are not wired (tests, tools).
type Noop struct{}

func (Noop) LoginAttempt(string) {}
func (Noop) LeadGenerated()      {}
func (Noop) LeadConflict()       {}
