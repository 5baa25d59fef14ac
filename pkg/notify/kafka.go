package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ruslano69/tradesync/pkg/config"
)

// KafkaPublisher publishes sync events to a Kafka topic.
type KafkaPublisher struct {
	config config.KafkaConfig
	writer *kafka.Writer
}

// NewKafkaPublisher validates the config and creates a publisher.
// Connect must be called before Publish.
func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}

	return &KafkaPublisher{config: cfg}, nil
}

// Connect builds the writer. Kafka connections are lazy; the first
// Publish establishes them.
func (k *KafkaPublisher) Connect(ctx context.Context) error {
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(k.config.Brokers...),
		Topic:        k.config.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		Compression:  kafka.Snappy,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return nil
}

// Publish sends one event keyed by pipeline name, so consumers see the
// events of one pipeline in order.
func (k *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if k.writer == nil {
		return fmt.Errorf("not connected to Kafka")
	}

	payload, err := marshalEvent(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Pipeline),
		Value: payload,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to Kafka: %w", err)
	}

	return nil
}

// Close closes the writer.
func (k *KafkaPublisher) Close() error {
	if k.writer != nil {
		return k.writer.Close()
	}
	return nil
}
