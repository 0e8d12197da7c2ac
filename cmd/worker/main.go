// Worker consumes telemetry events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"prospect-platform/backend/internal/config"
	"prospect-platform/backend/internal/platform/logger"
	"prospect-platform/backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, ServiceName: "prospect-telemetry-worker"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		zl.Fatal("KAFKA_BROKERS is required")
	}
	lc, err := loki.NewClient(cfg.LokiURL, cfg.ServiceName, nil)
	if err != nil {
		zl.Fatal("LOKI_URL is required", zap.Error(err))
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          cfg.TelemetryKafkaTopic,
		GroupID:        cfg.KafkaGroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zl.Info("consuming telemetry",
		zap.String("topic", cfg.TelemetryKafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("loki", cfg.LokiURL),
	)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				zl.Info("worker stopped")
				return
			}
			zl.Warn("kafka read failed", zap.Error(err))
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := lc.PushEventJSON(pushCtx, msg.Value); err != nil {
			zl.Warn("loki push failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
		cancel()
	}
}
