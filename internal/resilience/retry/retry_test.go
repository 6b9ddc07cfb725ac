package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		Name:         "test",
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

var errRefused = fmt.Errorf("dial tcp 127.0.0.1:5432: %w", syscall.ECONNREFUSED)

/* ───────────────────────── 1. WithBackoff ───────────────────────── */

func TestWithBackoff(t *testing.T) {
	errAuth := errors.New("password authentication failed")

	tests := []struct {
		name         string
		attempts     int
		failures     []error
		wantCalls    int
		wantErr      bool
		wantSentinel error
	}{
		{name: "first call succeeds", attempts: 3, wantCalls: 1},
		{name: "transient then success", attempts: 3, failures: []error{errRefused, errRefused}, wantCalls: 3},
		{name: "exhausted", attempts: 2, failures: []error{errRefused, errRefused, errRefused}, wantCalls: 2, wantErr: true, wantSentinel: syscall.ECONNREFUSED},
		{name: "non-retryable stops at once", attempts: 5, failures: []error{errAuth}, wantCalls: 1, wantErr: true, wantSentinel: errAuth},
		{name: "zero attempts still calls once", attempts: 0, failures: []error{errRefused}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := WithBackoff(context.Background(), fastConfig(tt.attempts), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("expected %v in chain, got %v", tt.wantSentinel, err)
			}
		})
	}
}

func TestWithBackoff_CustomClassifier(t *testing.T) {
	cfg := fastConfig(3)
	cfg.Retryable = func(err error) bool { return err.Error() == "busy" }

	calls := 0
	err := WithBackoff(context.Background(), cfg, func() error {
		calls++
		return errors.New("busy")
	})

	if err == nil || calls != 3 {
		t.Errorf("expected 3 calls and an error, got %d calls, err %v", calls, err)
	}
}

func TestWithBackoff_CancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	calls := 0
	err := WithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return errRefused
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

/* ───────────────────────── 2. delay schedule ───────────────────────── */

func TestConfig_Delay(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second, time.Second}
	for i, w := range want {
		if got := cfg.delay(i + 1); got != w {
			t.Errorf("delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestConfig_DelayJitterBounded(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, JitterFraction: 0.5}

	for i := 0; i < 100; i++ {
		got := cfg.delay(1)
		if got < 100*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("delay(1) = %v, want within [100ms, 150ms]", got)
		}
	}
}

func TestDBStartupConfig(t *testing.T) {
	cfg := DBStartupConfig()

	if cfg.MaxAttempts < 2 {
		t.Errorf("expected retries at startup, got MaxAttempts %d", cfg.MaxAttempts)
	}
	if cfg.delay(cfg.MaxAttempts) > cfg.MaxDelay+time.Duration(float64(cfg.MaxDelay)*cfg.JitterFraction) {
		t.Error("delay exceeds MaxDelay plus jitter")
	}
}

/* ───────────────────────── 3. classification ───────────────────────── */

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "connection refused", err: errRefused, want: true},
		{name: "connection reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), want: true},
		{name: "host unreachable", err: syscall.EHOSTUNREACH, want: true},
		{name: "net timeout", err: &net.OpError{Op: "dial", Err: timeoutErr{}}, want: true},
		{name: "cancelled", err: context.Canceled, want: false},
		{name: "deadline", err: fmt.Errorf("ping: %w", context.DeadlineExceeded), want: false},
		{name: "auth failure", err: errors.New("password authentication failed"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

/* ───────────────────────── 4. pacing ───────────────────────── */

func TestSleep(t *testing.T) {
	t.Run("completes", func(t *testing.T) {
		if err := Sleep(context.Background(), time.Millisecond); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		start := time.Now()
		if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if time.Since(start) > time.Second {
			t.Error("Sleep did not return promptly")
		}
	})

	t.Run("non-positive reports context state", func(t *testing.T) {
		if err := Sleep(context.Background(), 0); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := Sleep(ctx, -time.Second); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestJitter(t *testing.T) {
	lo, hi := 2*time.Second, 5*time.Second
	for i := 0; i < 200; i++ {
		if got := Jitter(lo, hi); got < lo || got > hi {
			t.Fatalf("Jitter(%v, %v) = %v out of range", lo, hi, got)
		}
	}
	if got := Jitter(hi, lo); got != hi {
		t.Errorf("inverted range: got %v, want %v", got, hi)
	}
	if got := Jitter(lo, lo); got != lo {
		t.Errorf("empty range: got %v, want %v", got, lo)
	}
}
