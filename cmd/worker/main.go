package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/sony/gobreaker"

	"github.com/roshhellwett/TeleAcademicBot/internal/config"
	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	pgRepo "github.com/roshhellwett/TeleAcademicBot/internal/infra/adapter/persistence/postgres"
	"github.com/roshhellwett/TeleAcademicBot/internal/infra/db"
	"github.com/roshhellwett/TeleAcademicBot/internal/infra/document"
	"github.com/roshhellwett/TeleAcademicBot/internal/infra/fetcher"
	"github.com/roshhellwett/TeleAcademicBot/internal/infra/notifier"
	"github.com/roshhellwett/TeleAcademicBot/internal/infra/scraper"
	workerPkg "github.com/roshhellwett/TeleAcademicBot/internal/infra/worker"
	"github.com/roshhellwett/TeleAcademicBot/internal/observability/logging"
	"github.com/roshhellwett/TeleAcademicBot/internal/observability/metrics"
	"github.com/roshhellwett/TeleAcademicBot/internal/observability/tracing"
	"github.com/roshhellwett/TeleAcademicBot/internal/repository"
	"github.com/roshhellwett/TeleAcademicBot/internal/resilience/circuitbreaker"
	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/ingest"
	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/notify"
	"github.com/roshhellwett/TeleAcademicBot/internal/utils/text"
	envconfig "github.com/roshhellwett/TeleAcademicBot/pkg/config"
)

// statsJobTimeout bounds one run of the stats job.
const statsJobTimeout = 30 * time.Second

func main() {
	// .env is optional; real environment variables win
	envLoaded := godotenv.Load() == nil

	logger := logging.NewLogger()
	slog.SetDefault(logger)
	if envLoaded {
		logger.Info("loaded .env file")
	}

	shutdownTracer := tracing.InitTracer()
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shut down tracer", slog.Any("error", err))
		}
	}()

	// SIGINT / SIGTERM cancel ctx; the loop finishes its current step and returns
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		fatal(logger, "failed to load worker configuration", err)
	}
	logger.Info("worker configuration loaded",
		slog.Duration("interval", workerConfig.Pipeline.Interval),
		slog.Duration("cycle_timeout", workerConfig.Pipeline.CycleTimeout),
		slog.Int("build_parallelism", workerConfig.Pipeline.BuildParallelism),
		slog.Any("target_years", workerConfig.Builder.TargetYears),
		slog.Uint64("breaker_threshold", uint64(workerConfig.Breaker.Threshold)),
		slog.Duration("breaker_cooldown", workerConfig.Breaker.Cooldown),
		slog.String("stats_cron", workerConfig.StatsCron),
		slog.String("timezone", workerConfig.Timezone))

	database := initDatabase(ctx, logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	sources, err := config.ResolveSources(envconfig.GetEnvString("SOURCES_FILE", ""))
	if err != nil {
		fatal(logger, "failed to load source registry", err)
	}
	for _, src := range sources {
		logger.Info("source registered",
			slog.String("source", src.Key),
			slog.Int("priority", src.Priority),
			slog.String("url", src.URL))
	}

	breakers := circuitbreaker.NewSourceBreakers(workerConfig.Breaker, breakerObserver(logger))
	noticeRepo := pgRepo.NewNoticeRepo(database, logger, func(kind repository.StorageErrorKind) {
		metrics.RecordStorageFailure(kind.String())
	})

	svc := setupIngestService(logger, workerConfig, sources, breakers, noticeRepo)
	svc.OnCycle = workerMetrics.ObserveCycle

	// Start metrics HTTP server
	startMetricsServer(ctx, logger, workerConfig.MetricsPort)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	healthServer.AddReadinessCheck("database", database.PingContext)
	healthServer.SetSourceReporter(breakers)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	statsCron := startStatsJob(logger, workerConfig, workerMetrics, noticeRepo, database, breakers)

	// Mark as ready once every component is wired
	healthServer.SetReady(true)
	logger.Info("worker started", slog.Int("sources", len(sources)))

	if err := svc.Run(ctx); err != nil {
		logger.Error("harvest loop failed", slog.Any("error", err))
	}

	healthServer.SetReady(false)
	<-statsCron.Stop().Done()
	logger.Info("worker stopped")
}

// fatal logs msg and exits with status 1.
func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, slog.Any("error", err))
	os.Exit(1)
}

// initDatabase opens the connection pool and applies the schema.
// Both failures are fatal: without the dedup store every notice would be re-sent.
func initDatabase(ctx context.Context, logger *slog.Logger) *sql.DB {
	database, err := db.Open(ctx)
	if err != nil {
		fatal(logger, "failed to open database", err)
	}
	if err := db.MigrateUp(ctx, database); err != nil {
		_ = database.Close()
		fatal(logger, "failed to apply schema", err)
	}
	logger.Info("database schema ready")
	return database
}

// setupIngestService wires the fetch, extract, build, dedup and delivery stages.
func setupIngestService(
	logger *slog.Logger,
	cfg *workerPkg.WorkerConfig,
	sources []entity.Source,
	breakers *circuitbreaker.SourceBreakers,
	store ingest.Store,
) *ingest.Service {
	fetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid fetch configuration, using defaults", slog.Any("error", err))
		fetchConfig = fetcher.DefaultConfig()
	}
	pageFetcher := fetcher.NewFetcher(fetchConfig)
	logger.Info("fetcher initialized",
		slog.Duration("timeout", fetchConfig.Timeout),
		slog.Any("ssl_verify_exempt", fetchConfig.SSLVerifyExempt))

	dates := text.NewDateExtractor(cfg.Builder.DateMinYear)
	resolver := document.NewResolver(pageFetcher, dates, logger)
	builder := ingest.NewBuilder(cfg.Builder, dates, resolver)
	extractor := scraper.NewNoticeExtractor(scraper.DefaultExtractorConfig())

	notifierConfig, err := notifier.LoadConfigFromEnv(cfg.DryRun)
	if err != nil {
		fatal(logger, "invalid notifier configuration", err)
	}
	channel, err := notifier.NewChannel(notifierConfig, logger)
	if err != nil {
		fatal(logger, "failed to create delivery channel", err)
	}
	logger.Info("delivery channel initialized",
		slog.String("channel", channel.Name()),
		slog.Bool("dry_run", notifierConfig.DryRun))

	deliverer := notify.NewService(channel, cfg.Delivery, logger)

	return ingest.NewService(
		sources,
		pageFetcher,
		extractor,
		builder,
		breakers,
		store,
		deliverer,
		cfg.Pipeline,
		logger,
	)
}

// breakerObserver exports breaker transitions as metrics and logs openings.
func breakerObserver(logger *slog.Logger) circuitbreaker.StateObserver {
	return func(source string, from, to gobreaker.State) {
		metrics.SetBreakerState(source, to)
		level := slog.LevelInfo
		if to == gobreaker.StateOpen {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, "source breaker state changed",
			slog.String("source", source),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
	}
}

// noticeCounter is the part of the repository the stats job reads.
type noticeCounter interface {
	CountAll(ctx context.Context) (int64, error)
}

// startStatsJob schedules the periodic stats job with robfig/cron.
func startStatsJob(
	logger *slog.Logger,
	cfg *workerPkg.WorkerConfig,
	workerMetrics *workerPkg.WorkerMetrics,
	counter noticeCounter,
	database *sql.DB,
	breakers *circuitbreaker.SourceBreakers,
) *cron.Cron {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.StatsCron, func() {
		runStatsJob(logger, workerMetrics, counter, database, breakers)
	})
	if err != nil {
		fatal(logger, "failed to add stats job", err)
	}
	c.Start()

	logger.Info("stats job scheduled", slog.String("schedule", cfg.StatsCron), slog.String("timezone", cfg.Timezone))
	return c
}

// runStatsJob refreshes the stored-notice and pool gauges and logs open breakers.
func runStatsJob(
	logger *slog.Logger,
	workerMetrics *workerPkg.WorkerMetrics,
	counter noticeCounter,
	database *sql.DB,
	breakers *circuitbreaker.SourceBreakers,
) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), statsJobTimeout)
	defer cancel()

	total, err := counter.CountAll(ctx)
	if err != nil {
		logger.Error("stats job failed", slog.Any("error", err))
		workerMetrics.RecordJobRun("failure")
		workerMetrics.RecordJobDuration(time.Since(startTime).Seconds())
		return
	}
	metrics.UpdateNoticesStored(total)

	pool := database.Stats()
	metrics.UpdateDBConnectionStats(pool.InUse, pool.Idle)

	var open []string
	for _, s := range breakers.Snapshot() {
		if breakers.CoolingDown(s.Source) {
			open = append(open, s.Source)
		}
	}

	workerMetrics.RecordJobRun("success")
	workerMetrics.RecordJobDuration(time.Since(startTime).Seconds())
	workerMetrics.RecordLastSuccess()

	logger.Info("stats",
		slog.Int64("notices_stored", total),
		slog.Int("db_in_use", pool.InUse),
		slog.Int("db_idle", pool.Idle),
		slog.Any("open_breakers", open))
	if len(open) > 0 {
		logger.Warn("sources cooling down", slog.Any("sources", open))
	}
}
