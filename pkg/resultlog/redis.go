package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tradesync/pkg/config"
)

// SyncResult is the run state published to Redis after every sync,
// successful or not.
//
// Redis keys:
//
//	SET  tradesync:sync:<name>:state  <JSON>  EX <ttl>  — for orchestrator GET polling
//	PUB  tradesync:sync:<name>                          — for event-driven routing
type SyncResult struct {
	Pipeline    string    `json:"pipeline"`
	Status      string    `json:"status"` // "committed" | "partially_failed" | "failed" | "skipped"
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMs  int64     `json:"duration_ms"`
	RowsTotal   int       `json:"rows_total"`
	RowsAdded   int       `json:"rows_added"`
	Duplicates  int       `json:"duplicates"`
	Warnings    []string  `json:"warnings,omitempty"`
	Error       *string   `json:"error,omitempty"`
}

// RedisPublisher publishes sync results to Redis.
type RedisPublisher struct {
	client *redis.Client
	config config.ResultLogConfig
}

// NewRedisPublisher creates a publisher from configuration.
func NewRedisPublisher(cfg config.ResultLogConfig) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisPublisher{client: client, config: cfg}
}

// Publish writes the result under the pipeline's state key and emits it
// on the pipeline's channel:
//   - SET tradesync:sync:<name>:state <JSON> EX <ttl>  → polling
//   - PUBLISH tradesync:sync:<name> <JSON>             → pub/sub
//
// Called regardless of how the run ended.
func (p *RedisPublisher) Publish(ctx context.Context, result SyncResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	stateKey := fmt.Sprintf("tradesync:sync:%s:state", result.Pipeline)
	eventChannel := fmt.Sprintf("tradesync:sync:%s", result.Pipeline)
	ttl := time.Duration(p.config.TTL) * time.Second

	if err := p.client.Set(ctx, stateKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	if err := p.client.Publish(ctx, eventChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
