// Package retry provides bounded exponential backoff and the cancellable
// sleeps the harvest loop uses for pacing.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"
)

// Config describes one bounded backoff schedule.
type Config struct {
	// Name labels retry logs ("database ping").
	Name string

	// MaxAttempts counts the first call; 1 disables retrying.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// JitterFraction adds up to this fraction of the delay (0.0 to 1.0).
	JitterFraction float64

	// Retryable classifies errors. Nil means IsRetryable.
	Retryable func(error) bool
}

// DBStartupConfig is the schedule for the startup database ping.
// Postgres often comes up after the worker container, so the window is wide:
// roughly 0.5s, 1s, 2s, 4s, 8s between six attempts.
func DBStartupConfig() Config {
	return Config{
		Name:           "database ping",
		MaxAttempts:    6,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// WithBackoff calls fn until it succeeds, returns a non-retryable error,
// runs out of attempts, or ctx is done.
//
// Returns:
//   - nil on success
//   - the non-retryable error unchanged
//   - ctx.Err() wrapped when cancelled while waiting
//   - the last error wrapped once attempts are exhausted
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}
	attempts := max(cfg.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				slog.Info("retry succeeded", slog.String("operation", cfg.Name), slog.Int("attempt", attempt))
			}
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		wait := cfg.delay(attempt)
		slog.Warn("retrying",
			slog.String("operation", cfg.Name),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", wait),
			slog.Any("error", err))
		if serr := Sleep(ctx, wait); serr != nil {
			return fmt.Errorf("%s: retry aborted: %w", cfg.Name, serr)
		}
	}
	return fmt.Errorf("%s: gave up after %d attempts: %w", cfg.Name, attempts, err)
}

// delay returns the wait after the given failed attempt (1-based).
func (c Config) delay(attempt int) time.Duration {
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(c.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	frac := min(max(c.JitterFraction, 0), 1)
	if frac > 0 {
		// #nosec G404 -- backoff jitter, not security sensitive.
		d += rand.Float64() * d * frac
	}
	return time.Duration(d)
}

// Sleep blocks for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jitter returns a random duration in [lo, hi]. If hi <= lo it returns lo.
func Jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	// #nosec G404 -- anti-detection delay, not security sensitive.
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}

// IsRetryable reports whether err looks like a transient network failure:
// refused or reset connections, unreachable networks and timeouts.
// Context cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT, syscall.ENETUNREACH, syscall.EHOSTUNREACH} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
