package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	"github.com/roshhellwett/TeleAcademicBot/internal/observability/logging"
	"github.com/roshhellwett/TeleAcademicBot/internal/observability/metrics"
	"github.com/roshhellwett/TeleAcademicBot/internal/observability/tracing"
	"github.com/roshhellwett/TeleAcademicBot/internal/resilience/circuitbreaker"
	"github.com/roshhellwett/TeleAcademicBot/internal/resilience/retry"
)

// Config holds the pacing of the harvest loop.
type Config struct {
	// Interval is the target period between cycle starts.
	Interval time.Duration
	// SleepFloor is the minimum pause between cycles, even when a cycle overruns.
	SleepFloor time.Duration
	// JitterMin and JitterMax bound the random pause before each fetch.
	JitterMin time.Duration
	JitterMax time.Duration
	// CycleTimeout bounds the fetch and build work of a cycle. Notices that
	// were already inserted are still delivered after it passes.
	CycleTimeout time.Duration
	// BuildParallelism bounds concurrent candidate builds (PDF downloads included).
	BuildParallelism int
}

// DefaultConfig returns the production loop settings.
func DefaultConfig() Config {
	return Config{
		Interval:         300 * time.Second,
		SleepFloor:       30 * time.Second,
		JitterMin:        2 * time.Second,
		JitterMax:        5 * time.Second,
		CycleTimeout:     20 * time.Minute,
		BuildParallelism: 2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Interval <= 0 || c.SleepFloor <= 0 || c.CycleTimeout <= 0 {
		return fmt.Errorf("interval, sleep floor and cycle timeout must be positive")
	}
	if c.JitterMin < 0 || c.JitterMax < c.JitterMin {
		return fmt.Errorf("invalid jitter range [%v, %v]", c.JitterMin, c.JitterMax)
	}
	if c.BuildParallelism < 1 {
		return fmt.Errorf("build parallelism must be at least 1, got %d", c.BuildParallelism)
	}
	return nil
}

// CycleStats contains statistics about one pass over the source registry.
type CycleStats struct {
	CycleID     string
	Sources     int
	Skipped     int
	FetchFailed int
	Candidates  int64
	Rejected    int64
	Inserted    int64
	Duplicates  int64
	Delivered   int
	Abandoned   int
	Duration    time.Duration
}

// CycleObserver is called after every cycle. err is non-nil when the cycle was cut short.
type CycleObserver func(stats *CycleStats, err error)

// Service is the pipeline orchestrator.
// It visits every source in registry order, one at a time, and delivers each
// source's new notices before moving on.
type Service struct {
	sources   []entity.Source
	fetcher   PageFetcher
	extractor Extractor
	builder   *Builder
	breaker   Breaker
	store     Store
	deliverer Deliverer
	cfg       Config
	logger    *slog.Logger

	// OnCycle, when set, receives the stats of every completed cycle.
	OnCycle CycleObserver

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(min, max time.Duration) time.Duration
}

// NewService creates the orchestrator with the provided dependencies.
//
// Parameters:
//   - sources: Registry, already sorted by priority
//   - fetcher: Page downloader
//   - extractor: HTML candidate extractor
//   - builder: Notice builder (date grounding, filters)
//   - breaker: Per-source circuit breakers
//   - store: Dedup repository
//   - deliverer: Ordered delivery
//   - cfg: Loop pacing
//   - logger: Structured logger (slog.Default when nil)
//
// Returns:
//   - *Service: Ready to run
//
// Example:
//
//	svc := ingest.NewService(sources, fetcher, extractor, builder, breakers, repo, notifySvc, ingest.DefaultConfig(), logger)
//	err := svc.Run(ctx)
func NewService(
	sources []entity.Source,
	fetcher PageFetcher,
	extractor Extractor,
	builder *Builder,
	breaker Breaker,
	store Store,
	deliverer Deliverer,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sources:   sources,
		fetcher:   fetcher,
		extractor: extractor,
		builder:   builder,
		breaker:   breaker,
		store:     store,
		deliverer: deliverer,
		cfg:       cfg,
		logger:    logger,
		sleep:     retry.Sleep,
		jitter:    retry.Jitter,
	}
}

// Run executes cycles until ctx is cancelled, then returns nil.
//
// Between cycles it sleeps max(SleepFloor, Interval - cycle duration). A cycle
// that hits CycleTimeout is logged and the loop continues.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("harvest loop started",
		slog.Int("sources", len(s.sources)),
		slog.Duration("interval", s.cfg.Interval))

	for {
		start := time.Now()

		stats, err := s.RunCycle(ctx)

		if ctx.Err() != nil {
			s.logger.Info("harvest loop stopped")
			return nil
		}
		if err != nil {
			s.logger.Warn("cycle cut short",
				slog.String("cycle_id", stats.CycleID),
				slog.Any("error", err))
		}

		wait := s.nextWait(time.Since(start))
		s.logger.Debug("sleeping until next cycle", slog.Duration("wait", wait))
		if err := s.sleep(ctx, wait); err != nil {
			s.logger.Info("harvest loop stopped")
			return nil
		}
	}
}

func (s *Service) nextWait(elapsed time.Duration) time.Duration {
	return max(s.cfg.SleepFloor, s.cfg.Interval-elapsed)
}

// RunCycle processes every source once, in registry order.
//
// Per-source failures never abort the cycle. The returned error is non-nil
// when ctx ends or CycleTimeout passes before all sources were visited.
//
// CycleTimeout cuts fetching and building only. Once a notice is inserted it
// is delivered on ctx, which only shutdown cancels; otherwise the next cycle
// would see it as a duplicate and it would never be sent.
func (s *Service) RunCycle(ctx context.Context) (*CycleStats, error) {
	start := time.Now()
	deadline := start.Add(s.cfg.CycleTimeout)
	stats := &CycleStats{CycleID: uuid.New().String(), Sources: len(s.sources)}

	ctx, span := tracing.StartSpan(ctx, "ingest.RunCycle",
		attribute.String("cycle_id", stats.CycleID),
		attribute.Int("sources", len(s.sources)))
	defer span.End()
	ctx, logger := logging.WithCycle(ctx, s.logger, stats.CycleID)

	var err error
	for _, src := range s.sources {
		if err = cycleErr(ctx, deadline); err != nil {
			break
		}
		s.processSource(ctx, src, deadline, stats)
	}
	if err == nil {
		err = ctx.Err()
	}

	stats.Duration = time.Since(start)
	metrics.RecordCycle(stats.Duration)
	if err != nil {
		tracing.RecordError(span, err)
	}

	logger.Info("cycle completed",
		slog.Int("sources", stats.Sources),
		slog.Int("skipped", stats.Skipped),
		slog.Int("fetch_failed", stats.FetchFailed),
		slog.Int64("candidates", stats.Candidates),
		slog.Int64("rejected", stats.Rejected),
		slog.Int64("inserted", stats.Inserted),
		slog.Int64("duplicates", stats.Duplicates),
		slog.Int("delivered", stats.Delivered),
		slog.Int("abandoned", stats.Abandoned),
		slog.Duration("duration", stats.Duration))

	if s.OnCycle != nil {
		s.OnCycle(stats, err)
	}
	return stats, err
}

// cycleErr reports why no further source may start.
func cycleErr(ctx context.Context, deadline time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}

// processSource runs fetch → extract → build → dedup → deliver for one source.
// Fetch and build run under the cycle deadline; insert and delivery run on ctx.
func (s *Service) processSource(ctx context.Context, src entity.Source, deadline time.Time, stats *CycleStats) {
	logger := logging.FromContext(ctx).With(slog.String("source", src.Key))
	ctx, span := tracing.StartSpan(ctx, "ingest.processSource", attribute.String("source", src.Key))
	defer span.End()

	harvestCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	candidates, err := s.fetchCandidates(harvestCtx, src)
	switch {
	case errors.Is(err, circuitbreaker.ErrSourceCoolingDown):
		stats.Skipped++
		metrics.RecordSourceSkipped(src.Key)
		logger.Info("source cooling down, skipped")
		return
	case harvestCtx.Err() != nil:
		return
	case err != nil:
		stats.FetchFailed++
		tracing.RecordError(span, err)
		logger.Warn("source failed", slog.Any("error", err))
		return
	}

	stats.Candidates += int64(len(candidates))
	metrics.RecordCandidates(src.Key, len(candidates))

	built := s.buildAll(harvestCtx, src, candidates, stats)
	if harvestCtx.Err() != nil {
		return
	}

	// 挿入はスクレイプ順、配信は時系列順
	var fresh []*entity.Notice
	for _, n := range built {
		if n == nil {
			continue
		}
		if harvestCtx.Err() != nil {
			break
		}
		inserted := s.store.TryInsert(ctx, n)
		metrics.RecordInsert(src.Key, inserted)
		if inserted {
			stats.Inserted++
			fresh = append(fresh, n)
		} else {
			stats.Duplicates++
		}
	}

	logger.Info("source processed",
		slog.Int("candidates", len(candidates)),
		slog.Int("new", len(fresh)))

	if len(fresh) == 0 {
		return
	}

	report := s.deliverer.DeliverInOrder(ctx, Chronological(fresh))
	stats.Delivered += report.Delivered
	stats.Abandoned += report.Abandoned
}

// fetchCandidates downloads and parses the source page behind its breaker.
// Fetch and parse failures both count against the source.
func (s *Service) fetchCandidates(ctx context.Context, src entity.Source) ([]Candidate, error) {
	var candidates []Candidate

	err := s.breaker.Execute(ctx, src.Key, func(ctx context.Context) error {
		if err := s.sleep(ctx, s.jitter(s.cfg.JitterMin, s.cfg.JitterMax)); err != nil {
			return err
		}

		start := time.Now()
		page, err := s.fetcher.FetchPage(ctx, src.URL)
		if err != nil {
			metrics.RecordSourceFetch(src.Key, time.Since(start), fetchErrorType(err))
			return err
		}

		candidates, err = s.extractor.Extract(page, src.URL)

		errorType := ""
		if err != nil {
			errorType = "parse"
		}
		metrics.RecordSourceFetch(src.Key, time.Since(start), errorType)
		return err
	})
	return candidates, err
}

// buildAll builds candidates concurrently. The result keeps candidate order;
// rejected entries are nil.
func (s *Service) buildAll(ctx context.Context, src entity.Source, candidates []Candidate, stats *CycleStats) []*entity.Notice {
	built := make([]*entity.Notice, len(candidates))
	var rejected atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BuildParallelism)
	for i, c := range candidates {
		g.Go(func() error {
			n, err := s.builder.Build(gctx, c, src.Name)
			if err != nil {
				rejected.Add(1)
				metrics.RecordRejected(src.Key, RejectReason(err))
				return nil
			}
			built[i] = n
			return nil
		})
	}
	_ = g.Wait()

	stats.Rejected += rejected.Load()
	return built
}

// Chronological orders notices oldest first.
//
// The input is in scrape order, and listing pages show the newest notice at the
// top, so the slice is reversed before a stable sort by date; notices sharing a
// date keep the reversed order.
func Chronological(notices []*entity.Notice) []*entity.Notice {
	out := slices.Clone(notices)
	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedDate.Before(out[j].PublishedDate)
	})
	return out
}

func fetchErrorType(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind.String()
	}
	return "other"
}
