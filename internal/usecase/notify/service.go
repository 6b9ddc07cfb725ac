package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	"github.com/roshhellwett/TeleAcademicBot/internal/observability/tracing"
	"github.com/roshhellwett/TeleAcademicBot/internal/resilience/retry"
)

// Config holds the delivery pacing and retry policy.
type Config struct {
	// RetryBudget is the number of transient failures tolerated per message.
	RetryBudget int
	// TransientBackoff is the fixed sleep after a transient failure.
	TransientBackoff time.Duration
	// RateLimitBuffer is added to every retry_after the destination asks for.
	RateLimitBuffer time.Duration
	// InterMessageDelay is slept after every successful send.
	InterMessageDelay time.Duration
	// MaxRateLimitWaits abandons a message after this many rate-limit signals.
	MaxRateLimitWaits int
}

// DefaultConfig returns the production delivery policy.
// 4s between messages keeps a channel under Telegram's 20 messages/minute.
func DefaultConfig() Config {
	return Config{
		RetryBudget:       5,
		TransientBackoff:  5 * time.Second,
		RateLimitBuffer:   2 * time.Second,
		InterMessageDelay: 4 * time.Second,
		MaxRateLimitWaits: 10,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.RetryBudget < 1 {
		return fmt.Errorf("retry budget must be at least 1, got %d", c.RetryBudget)
	}
	if c.MaxRateLimitWaits < 1 {
		return fmt.Errorf("max rate limit waits must be at least 1, got %d", c.MaxRateLimitWaits)
	}
	if c.TransientBackoff < 0 || c.RateLimitBuffer < 0 || c.InterMessageDelay < 0 {
		return fmt.Errorf("delivery delays must not be negative")
	}
	return nil
}

// Outcome is the terminal state of one message.
type Outcome int

const (
	// Delivered means the destination accepted the message.
	Delivered Outcome = iota + 1
	// Abandoned means the message was given up on and the batch moved on.
	Abandoned
	// Interrupted means the context ended before the message reached a terminal state.
	Interrupted
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Abandoned:
		return "abandoned"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// MessageResult records how a single message ended.
type MessageResult struct {
	ContentHash string
	Outcome     Outcome
	// TransientRetries counts attempts charged against the retry budget.
	TransientRetries int
	// RateLimitWaits counts rate-limit signals honoured (never charged).
	RateLimitWaits int
	// LastError is the final classified error for Abandoned messages.
	LastError *DeliveryError
}

// Report summarises one DeliverInOrder call.
type Report struct {
	Delivered   int
	Abandoned   int
	Interrupted bool
	Messages    []MessageResult
}

// Service sends batches of notices through a Channel, one at a time, oldest first.
type Service struct {
	channel Channel
	cfg     Config
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewService creates a delivery service.
//
// Parameters:
//   - channel: The messaging egress (Telegram client or no-op)
//   - cfg: Retry budget and pacing
//   - logger: Structured logger (slog.Default when nil)
//
// Returns:
//   - *Service: Ready to deliver
func NewService(channel Channel, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		channel: channel,
		cfg:     cfg,
		logger:  logger.With(slog.String("channel", channel.Name())),
		sleep:   retry.Sleep,
	}
}

// DeliverInOrder sends notices sequentially in the given order.
//
// The caller passes one source's batch already sorted oldest-first. A message
// that cannot be delivered never blocks the rest of the batch. Cancellation
// during any wait stops the batch; the remaining messages are not attempted.
func (s *Service) DeliverInOrder(ctx context.Context, notices []*entity.Notice) Report {
	ctx, span := tracing.StartSpan(ctx, "notify.DeliverInOrder",
		attribute.Int("notices", len(notices)))
	defer span.End()

	report := Report{Messages: make([]MessageResult, 0, len(notices))}
	for _, n := range notices {
		res := s.deliverOne(ctx, n)
		report.Messages = append(report.Messages, res)

		switch res.Outcome {
		case Delivered:
			report.Delivered++
			RecordDelivered(s.channel.Name())
		case Abandoned:
			report.Abandoned++
			RecordAbandoned(s.channel.Name())
		case Interrupted:
			report.Interrupted = true
		}
		if report.Interrupted {
			break
		}

		if res.Outcome == Delivered {
			if err := s.sleep(ctx, s.cfg.InterMessageDelay); err != nil {
				report.Interrupted = true
				break
			}
		}
	}

	span.SetAttributes(
		attribute.Int("delivered", report.Delivered),
		attribute.Int("abandoned", report.Abandoned),
		attribute.Bool("interrupted", report.Interrupted))

	if report.Delivered > 0 || report.Abandoned > 0 {
		s.logger.Info("delivery batch complete",
			slog.Int("delivered", report.Delivered),
			slog.Int("abandoned", report.Abandoned),
			slog.Bool("interrupted", report.Interrupted))
	}
	return report
}

// deliverOne runs the per-message state machine:
//
//	attempt ─ok────────────▶ delivered
//	   │ rate limited ─────▶ wait RetryAfter+buffer ─▶ attempt
//	   │ transient ────────▶ budget left? wait backoff ─▶ attempt : abandoned
//	   └ permanent ────────▶ abandoned
func (s *Service) deliverOne(ctx context.Context, n *entity.Notice) MessageResult {
	res := MessageResult{ContentHash: n.ContentHash}
	text := FormatNotice(n)
	log := s.logger.With(
		slog.String("content_hash", n.ContentHash),
		slog.String("title", n.Title))

	for {
		if ctx.Err() != nil {
			res.Outcome = Interrupted
			return res
		}

		start := time.Now()
		err := s.channel.Send(ctx, text)
		elapsed := time.Since(start)

		if err == nil {
			RecordAttempt(s.channel.Name(), "success", elapsed)
			log.Info("notice delivered",
				slog.Int("transient_retries", res.TransientRetries),
				slog.Int("rate_limit_waits", res.RateLimitWaits))
			res.Outcome = Delivered
			return res
		}

		de := Classify(err)
		RecordAttempt(s.channel.Name(), de.Kind.String(), elapsed)

		var wait time.Duration
		switch {
		case de.Kind == RateLimited:
			res.RateLimitWaits++
			if res.RateLimitWaits > s.cfg.MaxRateLimitWaits {
				log.Error("notice abandoned after repeated rate limiting",
					slog.Int("rate_limit_waits", res.RateLimitWaits-1))
				res.Outcome, res.LastError = Abandoned, de
				return res
			}
			wait = de.RetryAfter + s.cfg.RateLimitBuffer
			RecordRateLimitWait(s.channel.Name(), wait)
			log.Warn("rate limited, waiting",
				slog.Duration("retry_after", de.RetryAfter),
				slog.Duration("wait", wait))

		case de.Kind.Permanent():
			log.Error("notice abandoned: permanent delivery error, operator action required",
				slog.String("kind", de.Kind.String()),
				slog.Any("error", de.Err))
			res.Outcome, res.LastError = Abandoned, de
			return res

		default:
			if ctx.Err() != nil {
				res.Outcome = Interrupted
				return res
			}
			res.TransientRetries++
			if res.TransientRetries >= s.cfg.RetryBudget {
				log.Error("notice abandoned: retry budget exhausted",
					slog.Int("attempts", res.TransientRetries),
					slog.Any("error", de.Err))
				res.Outcome, res.LastError = Abandoned, de
				return res
			}
			wait = s.cfg.TransientBackoff
			log.Warn("transient delivery failure, retrying",
				slog.Int("attempt", res.TransientRetries),
				slog.Int("budget", s.cfg.RetryBudget),
				slog.Duration("wait", wait),
				slog.Any("error", de.Err))
		}

		if err := s.sleep(ctx, wait); err != nil {
			res.Outcome = Interrupted
			return res
		}
	}
}
