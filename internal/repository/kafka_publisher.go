package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"SwanPulse/internal/domain/models"
	"SwanPulse/internal/domain/repository"
)

// Producer is the publishing half of pkg/kafka.Producer.
type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
	Close() error
}

// KafkaEventPublisher republishes stream events to Kafka, keyed by the
// market signal so a consumer can follow one signal in order.
type KafkaEventPublisher struct {
	producer Producer
}

// NewKafkaEventPublisher creates Kafka publisher.
func NewKafkaEventPublisher(producer Producer) repository.EventSink {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) Name() string { return "kafka" }

func (p *KafkaEventPublisher) Write(ctx context.Context, ev *models.StreamEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	var key []byte
	if ev.Market != nil {
		key = []byte(ev.Market.Signal)
	}
	return p.producer.Publish(ctx, key, value)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
