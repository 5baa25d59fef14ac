package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryableFunc is an operation the Retryer can repeat.
type RetryableFunc func(ctx context.Context) error

// Retryer repeats failing operations with configurable backoff.
type Retryer struct {
	config Config
}

// NewRetryer validates the config and creates a Retryer.
func NewRetryer(config Config) (*Retryer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &Retryer{config: config}, nil
}

// Do runs fn until it succeeds, the error is declared non-retryable, the
// attempt limit is reached, or the context ends. The last error is
// wrapped in whatever terminates the loop.
func (r *Retryer) Do(ctx context.Context, fn RetryableFunc) error {
	if !r.config.Enabled {
		return fn(ctx)
	}

	var lastErr error
	attempts := 0

	for {
		attempts++

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if r.config.RetryIf != nil && !r.config.RetryIf(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		if r.config.MaxAttempts > 0 && attempts >= r.config.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.config.MaxAttempts, lastErr)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := r.calculateDelay(attempts)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempts, err, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// calculateDelay computes the wait before the next attempt.
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.BackoffStrategy {
	case BackoffConstant:
		delay = r.config.InitialDelay

	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)

	case BackoffExponential:
		multiplier := math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)

	default:
		delay = r.config.InitialDelay
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		jitter := time.Duration(float64(delay) * r.config.Jitter * (rand.Float64()*2 - 1))
		delay += jitter
		if delay < 0 {
			delay = r.config.InitialDelay
		}
	}

	return delay
}
