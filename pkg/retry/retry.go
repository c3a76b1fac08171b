package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Common errors
var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config controls the backoff schedule. Zero values fall back to the
// defaults noted per field.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// InitialInterval is the first backoff interval (default 1s).
	InitialInterval time.Duration
	// MaxInterval caps the backoff interval (default 30s).
	MaxInterval time.Duration
	// Multiplier grows the interval between attempts (default 2.0).
	Multiplier float64
	// JitterFactor randomizes each interval by ±factor (default 0.1).
	JitterFactor float64
}

func (c *Config) applyDefaults() {
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
}

// Operation is the function to be retried.
type Operation func(ctx context.Context) error

// Result reports how a retried operation ended.
type Result struct {
	// Err is nil on success, ErrMaxRetriesExceeded or ErrContextCanceled
	// otherwise.
	Err error
	// Attempts counts every call of the operation, the initial one included.
	Attempts int
	// LastError is the error of the final attempt.
	LastError error
}

// Do runs the operation with exponential backoff until it succeeds, the
// retry budget is spent, or the context ends. Used for infrastructure
// connects at startup; user-facing actions are never routed through here.
func Do(ctx context.Context, cfg *Config, op Operation) *Result {
	if cfg == nil {
		cfg = &Config{MaxRetries: 5}
	}
	cfg.applyDefaults()

	result := &Result{}
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		if ctx.Err() != nil {
			result.Err = ErrContextCanceled
			return result
		}

		err := op(ctx)
		if err == nil {
			return result
		}
		result.LastError = err

		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			result.Err = ErrContextCanceled
			return result
		case <-time.After(interval(cfg, attempt)):
		}
	}

	result.Err = ErrMaxRetriesExceeded
	return result
}

// interval computes the backoff for the given attempt, jittered to avoid
// synchronized reconnect storms.
func interval(cfg *Config, attempt int) time.Duration {
	d := float64(cfg.InitialInterval) * math.Pow(cfg.Multiplier, float64(attempt))

	if cfg.JitterFactor > 0 {
		jitter := d * cfg.JitterFactor
		d += (rand.Float64()*2 - 1) * jitter
	}

	if d > float64(cfg.MaxInterval) {
		d = float64(cfg.MaxInterval)
	}
	if d < 0 {
		d = float64(cfg.InitialInterval)
	}
	return time.Duration(d)
}
