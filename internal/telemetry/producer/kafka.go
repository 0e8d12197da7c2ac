package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"prospect-platform/backend/internal/telemetry/domain"
)

// KafkaProducer implements Producer using segmentio/kafka-go.
type KafkaProducer struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaProducer creates a producer that writes events to topic. Returns nil when brokers or
// topic are empty so callers can treat telemetry as disabled. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string, log *zap.Logger) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
		log: log,
	}
}

// Emit serializes the event as JSON and writes it keyed by user id.
func (p *KafkaProducer) Emit(ctx context.Context, event *domain.Event) error {
	if p == nil || p.writer == nil || event == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	msg := kafka.Message{Value: payload}
	if event.UserID != "" {
		msg.Key = []byte(event.UserID)
	}
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		p.log.Warn("telemetry kafka write failed", zap.String("event_type", event.EventType), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe on a nil producer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
