// Package retry re-runs an operation with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// ErrExhausted is wrapped together with the last error once every attempt
// has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Config describes a backoff schedule.
type Config struct {
	// MaxAttempts counts the first call; values below 1 mean a single call.
	MaxAttempts int

	// InitialDelay is the pause before the second attempt.
	InitialDelay time.Duration

	// MaxDelay caps every pause before jitter is added.
	MaxDelay time.Duration

	// Multiplier grows the pause after each failure; values below 1 keep it constant.
	Multiplier float64

	// JitterFraction adds up to this fraction of the pause at random (0.0 to 1.0).
	JitterFraction float64

	// Retryable decides whether an error is worth another attempt.
	// Nil means IsTransient.
	Retryable func(err error) bool
}

// EventPublishConfig is used when publishing change events. The changes are
// already committed when publishing starts, so a few quick attempts ride out
// a broker failover without stalling the sync tick.
func EventPublishConfig() Config {
	return Config{
		MaxAttempts:    4,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so that IsTransient rejects it. WithBackoff returns
// the unwrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsTransient reports whether err may go away on its own: anything except
// a cancelled or expired context and errors marked Permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var p *permanentError
	return !errors.As(err, &p)
}

// Delay returns the pause after the given failed attempt (1-based), before
// jitter.
func (c Config) Delay(attempt int) time.Duration {
	delay := c.InitialDelay
	for i := 1; i < attempt; i++ {
		if c.Multiplier > 1 {
			delay = time.Duration(float64(delay) * c.Multiplier)
		}
		if c.MaxDelay > 0 && delay >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && delay > c.MaxDelay {
		return c.MaxDelay
	}
	return delay
}

// WithBackoff calls fn until it succeeds, returns a non-retryable error, or
// runs out of attempts. Cancelling ctx aborts the wait between attempts.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				slog.InfoContext(ctx, "operation succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}

		if !retryable(err) {
			var p *permanentError
			if errors.As(err, &p) {
				err = p.err
			}
			return err
		}
		if attempt == maxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
		}

		delay := addJitter(cfg.Delay(attempt), cfg.JitterFraction)
		slog.WarnContext(ctx, "operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted: %w", errors.Join(ctx.Err(), err))
		}
	}
}

func addJitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || d <= 0 {
		return d
	}
	if fraction > 1 {
		fraction = 1
	}
	// #nosec G404 -- jitter does not need a secure source.
	return d + time.Duration(rand.Float64()*float64(d)*fraction)
}
