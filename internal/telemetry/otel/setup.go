// Package otel wires OpenTelemetry trace, metric and log providers exporting over OTLP gRPC,
// and adapts telemetry events to OTel log records.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

const defaultMetricInterval = 10 * time.Second

// Options configures NewProviders.
type Options struct {
	// Endpoint is the collector as host:port or a URL (the path is ignored). Empty disables export.
	Endpoint    string
	ServiceName string
	Environment string
	// Insecure forces plaintext even for https endpoints.
	Insecure bool
	// MetricInterval is the push period; zero uses 10s.
	MetricInterval time.Duration
}

// Providers holds the OpenTelemetry providers and a shutdown function.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	LoggerProvider *sdklog.LoggerProvider
	Shutdown       func(context.Context) error
}

// collector is a parsed OTLP endpoint.
type collector struct {
	host     string
	insecure bool
}

func parseCollector(endpoint string, forceInsecure bool) (collector, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return collector{}, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return collector{}, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return collector{host: u.Host, insecure: forceInsecure || u.Scheme != "https"}, nil
}

// NewProviders builds the three providers. Without an endpoint they are local providers with nothing
// attached, so spans and records are dropped and Shutdown is a no-op.
func NewProviders(ctx context.Context, opts Options) (*Providers, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return &Providers{
			TracerProvider: sdktrace.NewTracerProvider(),
			MeterProvider:  metric.NewMeterProvider(),
			LoggerProvider: sdklog.NewLoggerProvider(),
			Shutdown:       func(context.Context) error { return nil },
		}, nil
	}
	col, err := parseCollector(endpoint, opts.Insecure)
	if err != nil {
		return nil, err
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(opts.ServiceName),
		semconv.DeploymentEnvironmentName(opts.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	p := &Providers{}
	var stops []func(context.Context) error
	fail := func(err error) (*Providers, error) {
		for i := len(stops) - 1; i >= 0; i-- {
			_ = stops[i](ctx)
		}
		return nil, err
	}

	if p.TracerProvider, err = newTracerProvider(ctx, col, res); err != nil {
		return fail(fmt.Errorf("trace exporter: %w", err))
	}
	stops = append(stops, p.TracerProvider.Shutdown)

	interval := opts.MetricInterval
	if interval <= 0 {
		interval = defaultMetricInterval
	}
	if p.MeterProvider, err = newMeterProvider(ctx, col, res, interval); err != nil {
		return fail(fmt.Errorf("metric exporter: %w", err))
	}
	stops = append(stops, p.MeterProvider.Shutdown)

	if p.LoggerProvider, err = newLoggerProvider(ctx, col, res); err != nil {
		return fail(fmt.Errorf("log exporter: %w", err))
	}
	stops = append(stops, p.LoggerProvider.Shutdown)

	p.Shutdown = func(ctx context.Context) error {
		var errs []error
		for i := len(stops) - 1; i >= 0; i-- {
			errs = append(errs, stops[i](ctx))
		}
		return errors.Join(errs...)
	}
	return p, nil
}

func newTracerProvider(ctx context.Context, col collector, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(col.host)}
	if col.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res)), nil
}

func newMeterProvider(ctx context.Context, col collector, res *resource.Resource, interval time.Duration) (*metric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(col.host)}
	if col.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exp, metric.WithInterval(interval))),
	), nil
}

func newLoggerProvider(ctx context.Context, col collector, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(col.host)}
	if col.insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	), nil
}

// SetGlobal installs the tracer and meter providers and the W3C propagators used by otelgrpc and
// the service spans. The LoggerProvider is passed to NewEventEmitter instead.
func (p *Providers) SetGlobal() {
	if p.TracerProvider != nil {
		otel.SetTracerProvider(p.TracerProvider)
	}
	if p.MeterProvider != nil {
		otel.SetMeterProvider(p.MeterProvider)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}
