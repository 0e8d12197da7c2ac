package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	audithandler "prospect-platform/backend/internal/audit/handler"
	checker "prospect-platform/backend/internal/health"
	healthhandler "prospect-platform/backend/internal/health/handler"
	identityhandler "prospect-platform/backend/internal/identity/handler"
	leadhandler "prospect-platform/backend/internal/lead/handler"
	"prospect-platform/backend/internal/platform/background"
	"prospect-platform/backend/internal/platform/metrics"
	"prospect-platform/backend/internal/platform/rbac"
	"prospect-platform/backend/internal/platform/response"
	"prospect-platform/backend/internal/server/middleware"
	"prospect-platform/backend/internal/telemetry"
)

// APIPrefix is the mount point of the versioned API.
const APIPrefix = "/api/v1"

// RouterDeps holds what NewRouter wires into the HTTP API.
type RouterDeps struct {
	Log *zap.Logger

	Auth  *identityhandler.Handler
	Leads *leadhandler.Handler
	// Audit serves the audit trail. Nil leaves /audit-logs unmounted.
	Audit *audithandler.Handler

	Tokens middleware.TokenValidator
	Authz  middleware.Authorizer

	// AuthLimiter throttles the public auth routes. Nil disables it.
	AuthLimiter *middleware.RateLimiter
	// Metrics records request metrics and serves /metrics. Nil disables both.
	Metrics *metrics.Collector
	// Health backs /readyz. Nil reports ready with no checks.
	Health *checker.Checker

	Telemetry telemetry.EventEmitter
	Runner    *background.Runner

	CORSOrigins []string
}

// probePaths are not reported as http_request telemetry.
var probePaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// NewRouter builds the HTTP handler.
//
// Middleware order: RequestID, RequestLogger, Recoverer, StoreClientIP, CORS, metrics, telemetry.
// Bearer routes then run Authenticate followed by Require for the route's permission.
func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	health := deps.Health
	if health == nil {
		health = checker.NewChecker(time.Second)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StoreClientIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(deps.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.RequestTelemetry(deps.Telemetry, deps.Runner, probePaths))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Failure(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Failure(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", healthhandler.Liveness)
	r.Get("/readyz", healthhandler.Readiness(health))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if deps.AuthLimiter != nil {
				r.Use(deps.AuthLimiter.Middleware)
			}
			r.Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)
			r.Post("/verify-secure-pin", deps.Auth.VerifySecurePIN)
		})

		r.Get("/get-candle-of-property", deps.Leads.GetCandles)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(deps.Tokens))
			require := func(perm string) func(http.Handler) http.Handler {
				return middleware.Require(deps.Authz, perm)
			}

			r.With(require(rbac.PermLeadCreate)).Get("/check-already-lead-exist", deps.Leads.CheckLeadExists)
			r.With(require(rbac.PermLeadCreate)).Post("/generate-lead-for-property", deps.Leads.GenerateLead)
			r.With(require(rbac.PermProjectRead)).Get("/get-investors-project", deps.Leads.ListProjects)
			r.With(require(rbac.PermLeadRead)).Get("/get-investors-leads", deps.Leads.ListLeads)
			r.With(require(rbac.PermLeadRead)).Get("/get-investors-leads-details", deps.Leads.GetLead)
			r.With(require(rbac.PermLeadUpdate)).Put("/change-lead-status", deps.Leads.ChangeLeadStatus)
			if deps.Audit != nil {
				r.With(require(rbac.PermAuditRead)).Get("/audit-logs", deps.Audit.List)
			}
		})
	})

	return r
}

func corsOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
