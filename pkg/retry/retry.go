package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config controls the backoff schedule.
type Config struct {
	// MaxRetries is the number of attempts after the initial one.
	MaxRetries int
	// InitialInterval is the wait before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the backoff interval.
	MaxInterval time.Duration
	// Multiplier grows the interval after each retry.
	Multiplier float64
	// JitterFactor spreads the interval by up to +/- this fraction.
	JitterFactor float64
}

// DefaultConfig returns a schedule of 1s, 2s, 4s, 8s, 16s, capped at 30s.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

// Operation is the function to be retried.
type Operation func(ctx context.Context) error

// Result reports how a retried operation ended.
type Result struct {
	// Err is nil on success, otherwise ErrMaxRetriesExceeded or
	// ErrContextCanceled.
	Err error
	// Attempts counts every call of the operation, the initial one included.
	Attempts int
	// LastError is whatever the final attempt returned.
	LastError error
}

// Do runs op until it succeeds, the attempts run out, or ctx is done,
// sleeping with exponential backoff between attempts.
func Do(ctx context.Context, config *Config, op Operation) *Result {
	cfg := normalize(config)
	result := &Result{}
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		if ctx.Err() != nil {
			result.Err = ErrContextCanceled
			result.LastError = lastErr
			return result
		}

		err := op(ctx)
		if err == nil {
			return result
		}
		lastErr = err

		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			result.Err = ErrContextCanceled
			result.LastError = lastErr
			return result
		case <-time.After(interval(cfg, attempt)):
		}
	}

	result.Err = ErrMaxRetriesExceeded
	result.LastError = lastErr
	return result
}

func normalize(config *Config) *Config {
	if config == nil {
		return DefaultConfig()
	}
	cfg := *config
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 1 * time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterFactor < 0 {
		cfg.JitterFactor = 0
	}
	if cfg.JitterFactor > 1 {
		cfg.JitterFactor = 1
	}
	return &cfg
}

func interval(cfg *Config, attempt int) time.Duration {
	next := float64(cfg.InitialInterval) * math.Pow(cfg.Multiplier, float64(attempt))

	// jitter keeps simultaneous senders from retrying in lockstep
	if cfg.JitterFactor > 0 {
		jitter := next * cfg.JitterFactor
		next = next + (rand.Float64()*2-1)*jitter
	}

	if next > float64(cfg.MaxInterval) {
		next = float64(cfg.MaxInterval)
	}
	if next < 0 {
		next = float64(cfg.InitialInterval)
	}

	return time.Duration(next)
}
