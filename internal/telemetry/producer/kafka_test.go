package producer

import (
	"context"
	"testing"

	"prospect-platform/backend/internal/telemetry/domain"
)

func TestNewKafkaProducer_DisabledWithoutConfig(t *testing.T) {
	if p := NewKafkaProducer(nil, "topic", nil); p != nil {
		t.Error("expected nil producer without brokers")
	}
	if p := NewKafkaProducer([]string{"localhost:9092"}, "", nil); p != nil {
		t.Error("expected nil producer without topic")
	}
}

func TestKafkaProducer_NilIsNoop(t *testing.T) {
	var p *KafkaProducer
	if err := p.Emit(context.Background(), domain.NewEvent("test", "x", "", nil)); err != nil {
		t.Errorf("Emit on nil producer: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close on nil producer: %v", err)
	}
}

func TestKafkaProducer_ImplementsProducer(t *testing.T) {
	var _ Producer = (*KafkaProducer)(nil)
}
