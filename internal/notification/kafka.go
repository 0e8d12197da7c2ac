package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes messages to a topic keyed by recipient so one user's notifications stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher returns a publisher for topic, or nil when brokers or topic are empty.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 20 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

// Publish encodes msg as JSON and writes it.
func (p *KafkaPublisher) Publish(ctx context.Context, msg *Message) error {
	if p == nil || p.writer == nil {
		return nil
	}
	if msg == nil {
		return errors.New("notification: nil message")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RecipientUserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
	})
}

// Close flushes and closes the writer. Safe on a nil publisher.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
