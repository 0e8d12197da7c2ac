package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	checker "prospect-platform/backend/internal/health"
)

// GRPCServer serves grpc.health.v1.Health with a status kept in sync with the readiness probes.
type GRPCServer struct {
	*health.Server
	checker *checker.Checker
	log     *zap.Logger
}

// NewGRPCServer returns a health server that starts NOT_SERVING until the first probe run.
func NewGRPCServer(c *checker.Checker, log *zap.Logger) *GRPCServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &GRPCServer{Server: health.NewServer(), checker: c, log: log}
	s.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Refresh runs the probes once and publishes the result for the overall ("") service.
func (s *GRPCServer) Refresh(ctx context.Context) checker.Report {
	rep := s.checker.Check(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if !rep.Ready() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		s.log.Warn("readiness probe failed", zap.Any("checks", rep.Checks))
	}
	s.SetServingStatus("", status)
	return rep
}

// Run refreshes every interval until ctx is done, then marks the server as shutting down.
func (s *GRPCServer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	s.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
