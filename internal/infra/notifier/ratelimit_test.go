package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/notify"
)

func TestNewChatLimiter(t *testing.T) {
	tests := []struct {
		name      string
		rps       float64
		burst     int
		wantLimit rate.Limit
		wantBurst int
	}{
		{name: "TC-1: configured values kept", rps: 2, burst: 5, wantLimit: 2, wantBurst: 5},
		{name: "TC-2: zero rate falls back to 1/s", rps: 0, burst: 3, wantLimit: 1, wantBurst: 3},
		{name: "TC-3: zero burst falls back to 1", rps: 0.5, burst: 0, wantLimit: 0.5, wantBurst: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			l := newChatLimiter(tt.rps, tt.burst)

			// Assert
			if l.Limit() != tt.wantLimit || l.Burst() != tt.wantBurst {
				t.Errorf("got %v/s burst %d, want %v/s burst %d", l.Limit(), l.Burst(), tt.wantLimit, tt.wantBurst)
			}
		})
	}
}

func TestWaitTurn(t *testing.T) {
	t.Run("TC-1: burst passes immediately", func(t *testing.T) {
		// Arrange
		l := newChatLimiter(1, 3)

		// Act
		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := waitTurn(context.Background(), l); err != nil {
				t.Fatalf("request %d: %v", i+1, err)
			}
		}

		// Assert
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("expected burst to pass quickly, took %v", elapsed)
		}
	})

	t.Run("TC-2: empty bucket before a short deadline is transient", func(t *testing.T) {
		// Arrange
		l := newChatLimiter(1, 1)
		_ = waitTurn(context.Background(), l)
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		// Act
		err := waitTurn(ctx, l)

		// Assert
		var de *notify.DeliveryError
		if !errors.As(err, &de) {
			t.Fatalf("expected DeliveryError, got %v", err)
		}
		if de.Kind != notify.NetworkTransient {
			t.Errorf("expected NetworkTransient, got %v", de.Kind)
		}
	})

	t.Run("TC-3: cancellation stops the wait", func(t *testing.T) {
		// Arrange
		l := newChatLimiter(0.1, 1)
		_ = waitTurn(context.Background(), l)
		ctx, cancel := context.WithCancel(context.Background())

		// Act
		errCh := make(chan error, 1)
		go func() { errCh <- waitTurn(ctx, l) }()
		time.Sleep(20 * time.Millisecond)
		cancel()
		err := <-errCh

		// Assert
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled in chain, got %v", err)
		}
	})
}
