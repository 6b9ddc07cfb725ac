// Package circuitbreaker provides per-source circuit breakers for the scrape pipeline.
// It uses the github.com/sony/gobreaker library for the closed/open/half-open state machine.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
)

// ErrSourceCoolingDown is returned by Execute when the source is inside its
// cooldown window. The wrapped function is not called.
var ErrSourceCoolingDown = errors.New("source cooling down")

// Config holds the configuration shared by every source breaker.
type Config struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold uint32

	// Cooldown is how long an open breaker skips the source.
	Cooldown time.Duration
}

// DefaultConfig returns 3 consecutive failures / 30 minute cooldown.
func DefaultConfig() Config {
	return Config{
		Threshold: 3,
		Cooldown:  30 * time.Minute,
	}
}

// Validate checks that the configuration can build a breaker.
func (c Config) Validate() error {
	if c.Threshold == 0 {
		return fmt.Errorf("breaker threshold must be at least 1")
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("breaker cooldown must be positive, got %v", c.Cooldown)
	}
	return nil
}

// StateObserver receives breaker state transitions. May be nil.
type StateObserver func(source string, from, to gobreaker.State)

// SourceBreakers is the process-local table of per-source breakers.
//
// Each source gets its own gobreaker.TwoStepCircuitBreaker created on first use,
// so an aborted fetch can be left unreported instead of counted either way.
// The registry also tracks SourceHealth so operators can see failure counts
// and cooldown deadlines; gobreaker clears its own counts on every state change.
//
// State is not persisted. A restart closes every breaker.
type SourceBreakers struct {
	cfg      Config
	observer StateObserver
	now      func() time.Time

	mu       sync.Mutex
	breakers map[string]*gobreaker.TwoStepCircuitBreaker
	health   map[string]entity.SourceHealth
}

// NewSourceBreakers creates an empty registry.
func NewSourceBreakers(cfg Config, observer StateObserver) *SourceBreakers {
	return &SourceBreakers{
		cfg:      cfg,
		observer: observer,
		now:      time.Now,
		breakers: make(map[string]*gobreaker.TwoStepCircuitBreaker),
		health:   make(map[string]entity.SourceHealth),
	}
}

// Execute runs fn through the breaker for source.
//
// During cooldown Execute returns an error wrapping both ErrSourceCoolingDown and
// gobreaker.ErrOpenState without calling fn.
//
// An error caused by ctx ending (shutdown or the cycle deadline) is an abort:
// it is reported to neither gobreaker nor SourceHealth, so both keep the same
// consecutive failure count. The one exception is a half-open trial, which is
// reported as a failure because half-open admits no second trial until the
// first one settles.
//
// Example:
//
//	err := breakers.Execute(ctx, "announcements", func(ctx context.Context) error {
//	    page, err = fetcher.FetchPage(ctx, src.URL)
//	    return err
//	})
//	if errors.Is(err, circuitbreaker.ErrSourceCoolingDown) {
//	    // skipped, neither success nor failure
//	}
func (s *SourceBreakers) Execute(ctx context.Context, source string, fn func(context.Context) error) error {
	cb := s.breaker(source)

	done, err := cb.Allow()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSourceCoolingDown, source, err)
	}
	trial := cb.State() == gobreaker.StateHalfOpen

	err = fn(ctx)
	switch {
	case err == nil:
		done(true)
		s.recordSuccess(source)
	case isAbort(ctx, err):
		if trial {
			done(false)
		}
	default:
		done(false)
		s.recordFailure(source)
	}
	return err
}

// CoolingDown reports whether source is currently skipped.
func (s *SourceBreakers) CoolingDown(source string) bool {
	return s.Health(source).CoolingDown(s.now())
}

// Health returns the health entry for source. Unknown sources are healthy.
func (s *SourceBreakers) Health(source string) entity.SourceHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health[source]
}

// SourceStatus is one row of Snapshot.
type SourceStatus struct {
	Source              string    `json:"source"`
	State               string    `json:"state"`
	CoolingDown         bool      `json:"cooling_down"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CooldownUntil       time.Time `json:"cooldown_until"`
}

// Snapshot returns the status of every source seen so far, sorted by key.
func (s *SourceBreakers) Snapshot() []SourceStatus {
	// cb.State() takes the breaker's lock, which may call back into onStateChange.
	// Never hold s.mu across it.
	s.mu.Lock()
	breakers := make(map[string]*gobreaker.TwoStepCircuitBreaker, len(s.breakers))
	for key, cb := range s.breakers {
		breakers[key] = cb
	}
	s.mu.Unlock()

	now := s.now()
	out := make([]SourceStatus, 0, len(breakers))
	for key, cb := range breakers {
		state := cb.State().String()
		h := s.Health(key)
		out = append(out, SourceStatus{
			Source:              key,
			State:               state,
			CoolingDown:         h.CoolingDown(now),
			ConsecutiveFailures: h.ConsecutiveFailures,
			CooldownUntil:       h.CooldownUntil,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

func (s *SourceBreakers) breaker(source string) *gobreaker.TwoStepCircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[source]; ok {
		return cb
	}

	threshold := s.cfg.Threshold
	cb := gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		// Interval 0: closed-state counts are only cleared by a success.
		Interval: 0,
		Timeout:  s.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: s.onStateChange,
	})
	s.breakers[source] = cb
	return cb
}

// onStateChange is called by gobreaker while it holds its own lock, never ours.
// Logging is left to the observer.
func (s *SourceBreakers) onStateChange(name string, from, to gobreaker.State) {
	if to == gobreaker.StateOpen {
		until := s.now().Add(s.cfg.Cooldown)
		s.mu.Lock()
		h := s.health[name]
		h.CooldownUntil = until
		s.health[name] = h
		s.mu.Unlock()
	}

	if s.observer != nil {
		s.observer(name, from, to)
	}
}

func (s *SourceBreakers) recordSuccess(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health[source] = entity.SourceHealth{}
}

func (s *SourceBreakers) recordFailure(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.health[source]
	h.ConsecutiveFailures++
	s.health[source] = h
}

// isAbort reports whether err came from ctx ending rather than from the source.
func isAbort(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || ctx.Err() != nil
}
