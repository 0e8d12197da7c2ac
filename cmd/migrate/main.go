// migrate applies the embedded audit_logs schema to DATABASE_URL.
package main

import (
	"errors"
	"flag"
	"log"

	"go.uber.org/zap"

	"prospect-platform/backend/internal/config"
	"prospect-platform/backend/internal/db/migrate"
	"prospect-platform/backend/internal/platform/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: "prospect-migrate"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.DatabaseURL == "" {
		zl.Fatal("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			zl.Info("schema already at target version", zap.String("direction", *direction))
			return
		}
		zl.Fatal("migrate failed", zap.String("direction", *direction), zap.Error(err))
	}
	zl.Info("migration applied", zap.String("direction", *direction))
}
