package notifier

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/notify"
)

// newChatLimiter builds the token bucket in front of every Bot API call.
// notify.Service already paces messages; this is the hard ceiling if that
// pacing is misconfigured or several retries line up.
// Non-positive settings fall back to Telegram's per-chat limit of 1/s, burst 1.
func newChatLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		rps = 1
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// waitTurn blocks for a token. A wait cut short by ctx is reported as a
// transient delivery failure so notify.Service can decide whether to retry.
func waitTurn(ctx context.Context, l *rate.Limiter) error {
	if err := l.Wait(ctx); err != nil {
		return &notify.DeliveryError{Kind: notify.NetworkTransient, Err: fmt.Errorf("rate limiter: %w", err)}
	}
	return nil
}
