// Package logger builds the process zap logger and carries request-scoped loggers in context.
package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration.
type Config struct {
	Level       string
	Environment string
	ServiceName string
}

// New builds a zap logger for cfg and installs it as the zap global.
// Production uses the JSON encoder; anything else gets the colored console encoder.
func New(cfg Config) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)
	fields := zap.Fields(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)

	var zc zap.Config
	if cfg.Environment == "production" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build(fields)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type contextKey struct{}

// WithContext returns ctx carrying l.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored by WithContext, or the zap global.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(contextKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.L()
}
