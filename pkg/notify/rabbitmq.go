package notify

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ruslano69/tradesync/pkg/config"
)

// RabbitMQPublisher publishes sync events to a RabbitMQ queue.
type RabbitMQPublisher struct {
	config  config.RabbitMQConfig
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQPublisher validates the config and creates a publisher.
// Connect must be called before Publish.
func NewRabbitMQPublisher(cfg config.RabbitMQConfig) (*RabbitMQPublisher, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("queue name is required for RabbitMQ")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5672
	}

	return &RabbitMQPublisher{config: cfg}, nil
}

// Connect dials the broker and declares the queue. Declaration is
// idempotent; the parameters must match an already-existing queue.
func (r *RabbitMQPublisher) Connect(ctx context.Context) error {
	connStr := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		r.config.User,
		r.config.Password,
		r.config.Host,
		r.config.Port,
	)

	var err error
	r.conn, err = amqp.Dial(connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = r.channel.QueueDeclare(
		r.config.Queue,
		true,  // durable, sync events must survive a broker restart
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		r.channel.Close()
		r.conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	return nil
}

// Publish sends one event as a persistent JSON message.
func (r *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	if r.channel == nil {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	payload, err := marshalEvent(event)
	if err != nil {
		return err
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",             // default exchange
		r.config.Queue, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the channel and connection.
func (r *RabbitMQPublisher) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
