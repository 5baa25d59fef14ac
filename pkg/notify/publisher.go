package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ruslano69/tradesync/pkg/config"
)

// Event is a sync lifecycle notification published to a broker so
// downstream consumers (reporting, alerting) learn about ledger changes
// without polling storage.
type Event struct {
	Pipeline   string    `json:"pipeline"`
	Outcome    string    `json:"outcome"`
	MasterName string    `json:"master_name"`
	RowsTotal  int       `json:"rows_total"`
	RowsAdded  int       `json:"rows_added"`
	Warnings   []string  `json:"warnings,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers sync events to a message broker.
type Publisher interface {
	// Connect establishes the broker connection.
	Connect(ctx context.Context) error

	// Publish sends one event.
	Publish(ctx context.Context, event Event) error

	// Close releases the connection.
	Close() error
}

// New creates a Publisher from configuration. An empty type yields a
// NullPublisher so callers never branch on "notifications disabled".
func New(cfg config.NotifyConfig) (Publisher, error) {
	switch cfg.Type {
	case "":
		return NewNullPublisher(), nil
	case "rabbitmq":
		if cfg.RabbitMQ == nil {
			return nil, fmt.Errorf("rabbitmq config section is required")
		}
		return NewRabbitMQPublisher(*cfg.RabbitMQ)
	case "kafka":
		if cfg.Kafka == nil {
			return nil, fmt.Errorf("kafka config section is required")
		}
		return NewKafkaPublisher(*cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported notify type: %s", cfg.Type)
	}
}

func marshalEvent(event Event) ([]byte, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

// NullPublisher discards events.
type NullPublisher struct{}

func NewNullPublisher() *NullPublisher {
	return &NullPublisher{}
}

func (np *NullPublisher) Connect(ctx context.Context) error {
	return nil
}

func (np *NullPublisher) Publish(ctx context.Context, event Event) error {
	return nil
}

func (np *NullPublisher) Close() error {
	return nil
}
