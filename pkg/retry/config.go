package retry

import (
	"fmt"
	"time"
)

// BackoffStrategy selects how the delay grows between attempts.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// Config controls the retry behavior of storage operations.
type Config struct {
	// Enabled turns retrying on. Disabled means a single attempt.
	Enabled bool `yaml:"enabled"`

	// MaxAttempts is the total number of attempts including the first.
	// 0 means retry forever (not recommended).
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration `yaml:"max_delay"`

	// BackoffStrategy selects constant, linear or exponential growth.
	BackoffStrategy BackoffStrategy `yaml:"backoff_strategy"`

	// BackoffMultiplier is the exponential growth factor (usually 2.0).
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// Jitter adds randomness to the delay, 0.0 to 1.0 of its value.
	// Helps avoid thundering-herd retries.
	Jitter float64 `yaml:"jitter"`

	// RetryIf decides whether an error is worth retrying. Nil retries
	// every error.
	RetryIf func(error) bool `yaml:"-"`

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0, got %d", c.MaxAttempts)
	}

	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}

	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}

	if c.BackoffStrategy != BackoffConstant &&
		c.BackoffStrategy != BackoffLinear &&
		c.BackoffStrategy != BackoffExponential {
		return fmt.Errorf("invalid backoff strategy: %s", c.BackoffStrategy)
	}

	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0
	}

	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}

	return nil
}

// DefaultConfig returns the defaults used by storage clients.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffStrategy:   BackoffExponential,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}
