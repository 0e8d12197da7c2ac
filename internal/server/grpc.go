// Package server assembles the HTTP router and the gRPC server from the wired handlers.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthhandler "prospect-platform/backend/internal/health/handler"
)

// GRPCDeps holds the services exposed on the gRPC listener.
type GRPCDeps struct {
	// Health serves grpc.health.v1.Health. Required.
	Health *healthhandler.GRPCServer
	// Reflection registers the reflection service, for grpcurl in development.
	Reflection bool
}

// NewGRPCServer returns a gRPC server instrumented with otelgrpc and the given services registered.
func NewGRPCServer(deps GRPCDeps, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	if deps.Reflection {
		reflection.Register(s)
	}
	return s
}

// RegisterServices registers the gRPC services with s.
func RegisterServices(s grpc.ServiceRegistrar, deps GRPCDeps) {
	if deps.Health != nil {
		healthpb.RegisterHealthServer(s, deps.Health)
	}
}
