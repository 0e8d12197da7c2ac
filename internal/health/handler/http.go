// Package handler exposes the readiness probes over HTTP and gRPC.
package handler

import (
	"net/http"

	checker "prospect-platform/backend/internal/health"
	"prospect-platform/backend/internal/platform/response"
)

// Liveness handles GET /healthz. It only reports that the process is serving.
func Liveness(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, map[string]string{"status": checker.StatusOK})
}

// Readiness returns a handler for GET /readyz: 200 when every probe passes, 503 otherwise.
func Readiness(c *checker.Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep := c.Check(r.Context())
		if !rep.Ready() {
			response.Write(w, http.StatusServiceUnavailable, response.Envelope{
				Type:       response.TypeFailure,
				Data:       rep,
				StatusCode: http.StatusServiceUnavailable,
			})
			return
		}
		response.Success(w, http.StatusOK, rep)
	}
}
