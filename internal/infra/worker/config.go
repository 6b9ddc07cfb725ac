package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roshhellwett/TeleAcademicBot/internal/pkg/config"
	"github.com/roshhellwett/TeleAcademicBot/internal/resilience/circuitbreaker"
	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/ingest"
	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/notify"
)

// WorkerConfig holds the configuration for the worker process.
// It gathers the settings of every component the worker wires together:
// the harvest loop, the notice builder, the source breakers, delivery pacing,
// the stats job and the HTTP ports.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Example usage:
//
//	metrics := NewWorkerMetrics()
//	cfg, _ := LoadConfigFromEnv(logger, metrics)
//	svc := ingest.NewService(sources, fetcher, extractor,
//	    ingest.NewBuilder(cfg.Builder, dates, resolver), breakers, repo,
//	    notify.NewService(channel, cfg.Delivery, logger), cfg.Pipeline, logger)
type WorkerConfig struct {
	// StatsCron is the cron expression of the stats job.
	// Format: "minute hour day month weekday"
	// Default: "0 * * * *" (hourly)
	StatsCron string

	// Timezone is the IANA timezone name for cron scheduling.
	// Default: "Asia/Kolkata"
	Timezone string

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// MetricsPort is the port number of the Prometheus /metrics server.
	// Range: 1024-65535
	// Default: 9090
	MetricsPort int

	// Pipeline is the harvest loop pacing.
	Pipeline ingest.Config

	// Builder holds the notice acceptance rules.
	Builder ingest.BuilderConfig

	// Breaker configures the per-source circuit breakers.
	Breaker circuitbreaker.Config

	// Delivery is the retry budget and pacing of message delivery.
	Delivery notify.Config

	// DryRun replaces the Telegram channel with one that only logs.
	// Default: false
	DryRun bool
}

// DefaultConfig returns a WorkerConfig with production default values.
//
// Example:
//
//	config := DefaultConfig()
//	config.Pipeline.Interval = 10 * time.Minute
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		StatsCron:   "0 * * * *",
		Timezone:    "Asia/Kolkata",
		HealthPort:  9091,
		MetricsPort: 9090,
		Pipeline:    ingest.DefaultConfig(),
		Builder:     ingest.DefaultBuilderConfig(),
		Breaker:     circuitbreaker.DefaultConfig(),
		Delivery:    notify.DefaultConfig(),
	}
}

// Validate checks if the configuration values are valid.
// If multiple fields are invalid, all errors are collected and returned together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.StatsCron); err != nil {
		errors = append(errors, fmt.Errorf("stats cron: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errors = append(errors, fmt.Errorf("health and metrics ports must differ, both %d", c.HealthPort))
	}
	if err := c.Pipeline.Validate(); err != nil {
		errors = append(errors, fmt.Errorf("pipeline: %w", err))
	}
	if err := c.Builder.Validate(); err != nil {
		errors = append(errors, fmt.Errorf("builder: %w", err))
	}
	if err := c.Breaker.Validate(); err != nil {
		errors = append(errors, fmt.Errorf("breaker: %w", err))
	}
	if err := c.Delivery.Validate(); err != nil {
		errors = append(errors, fmt.Errorf("delivery: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}
	return nil
}

// envLoader applies ConfigLoadResults and tracks fallbacks.
type envLoader struct {
	logger   *slog.Logger
	metrics  *WorkerMetrics
	fellBack bool
}

func (l *envLoader) apply(field string, result config.ConfigLoadResult) interface{} {
	if result.FallbackApplied {
		l.fellBack = true
		l.metrics.RecordValidationError(field)
		l.metrics.RecordFallback(field)
		for _, warning := range result.Warnings {
			l.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return result.Value
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use default value, log warning, increment metrics
//  5. Never return error - always return a valid configuration
//
// Environment variables:
//   - STATS_CRON, WORKER_TIMEZONE, WORKER_HEALTH_PORT, METRICS_PORT
//   - SCRAPE_INTERVAL, SCRAPE_SLEEP_FLOOR, SCRAPE_JITTER_MIN, SCRAPE_JITTER_MAX,
//     CYCLE_TIMEOUT, BUILD_PARALLELISM
//   - TARGET_YEARS, STALE_YEARS, DATE_MIN_YEAR, MIN_TEXT_LENGTH
//   - BREAKER_THRESHOLD, BREAKER_COOLDOWN
//   - DELIVERY_RETRY_BUDGET, DELIVERY_TRANSIENT_BACKOFF, DELIVERY_RATE_LIMIT_BUFFER,
//     DELIVERY_INTER_MESSAGE_DELAY, DELIVERY_MAX_RATE_LIMIT_WAITS, DELIVERY_DRY_RUN
//
// Returns:
//   - *WorkerConfig: Valid configuration (never nil)
//   - error: Always nil (fail-open strategy)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	l := &envLoader{logger: logger, metrics: metrics}

	port := func(v int) error { return config.ValidateIntRange(v, 1024, 65535) }
	between := func(min, max time.Duration) func(time.Duration) error {
		return func(d time.Duration) error { return config.ValidateDuration(d, min, max) }
	}
	intRange := func(min, max int) func(int) error {
		return func(v int) error { return config.ValidateIntRange(v, min, max) }
	}

	// Worker
	cfg.StatsCron = l.apply("stats_cron", config.LoadEnvWithFallback("STATS_CRON", cfg.StatsCron, config.ValidateCronSchedule)).(string)
	cfg.Timezone = l.apply("timezone", config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)).(string)
	cfg.HealthPort = l.apply("health_port", config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, port)).(int)
	cfg.MetricsPort = l.apply("metrics_port", config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, port)).(int)

	// Pipeline
	p := &cfg.Pipeline
	p.Interval = l.apply("scrape_interval", config.LoadEnvDuration("SCRAPE_INTERVAL", p.Interval, between(30*time.Second, 24*time.Hour))).(time.Duration)
	p.SleepFloor = l.apply("scrape_sleep_floor", config.LoadEnvDuration("SCRAPE_SLEEP_FLOOR", p.SleepFloor, between(time.Second, time.Hour))).(time.Duration)
	p.JitterMin = l.apply("scrape_jitter_min", config.LoadEnvDuration("SCRAPE_JITTER_MIN", p.JitterMin, between(0, time.Minute))).(time.Duration)
	p.JitterMax = l.apply("scrape_jitter_max", config.LoadEnvDuration("SCRAPE_JITTER_MAX", p.JitterMax, between(0, time.Minute))).(time.Duration)
	p.CycleTimeout = l.apply("cycle_timeout", config.LoadEnvDuration("CYCLE_TIMEOUT", p.CycleTimeout, between(time.Minute, 4*time.Hour))).(time.Duration)
	p.BuildParallelism = l.apply("build_parallelism", config.LoadEnvInt("BUILD_PARALLELISM", p.BuildParallelism, intRange(1, 16))).(int)
	if p.JitterMax < p.JitterMin {
		def := ingest.DefaultConfig()
		l.apply("scrape_jitter", config.ConfigLoadResult{
			Value:           nil,
			FallbackApplied: true,
			Warnings: []string{fmt.Sprintf("SCRAPE_JITTER_MAX %v below SCRAPE_JITTER_MIN %v, falling back to defaults [%v, %v]",
				p.JitterMax, p.JitterMin, def.JitterMin, def.JitterMax)},
		})
		p.JitterMin, p.JitterMax = def.JitterMin, def.JitterMax
	}

	// Builder
	b := &cfg.Builder
	b.TargetYears = l.apply("target_years", config.LoadEnvIntList("TARGET_YEARS", b.TargetYears, config.ValidateYears)).([]int)
	b.StaleYears = l.apply("stale_years", config.LoadEnvIntList("STALE_YEARS", b.StaleYears, config.ValidateYears)).([]int)
	b.DateMinYear = l.apply("date_min_year", config.LoadEnvInt("DATE_MIN_YEAR", b.DateMinYear, intRange(1900, 9999))).(int)
	b.MinTextLength = l.apply("min_text_length", config.LoadEnvInt("MIN_TEXT_LENGTH", b.MinTextLength, intRange(1, 200))).(int)

	// Breaker
	threshold := l.apply("breaker_threshold", config.LoadEnvInt("BREAKER_THRESHOLD", int(cfg.Breaker.Threshold), intRange(1, 100))).(int)
	cfg.Breaker.Threshold = uint32(threshold) // #nosec G115 -- range-checked above
	cfg.Breaker.Cooldown = l.apply("breaker_cooldown", config.LoadEnvDuration("BREAKER_COOLDOWN", cfg.Breaker.Cooldown, between(time.Minute, 24*time.Hour))).(time.Duration)

	// Delivery
	d := &cfg.Delivery
	d.RetryBudget = l.apply("delivery_retry_budget", config.LoadEnvInt("DELIVERY_RETRY_BUDGET", d.RetryBudget, intRange(1, 20))).(int)
	d.TransientBackoff = l.apply("delivery_transient_backoff", config.LoadEnvDuration("DELIVERY_TRANSIENT_BACKOFF", d.TransientBackoff, between(0, 5*time.Minute))).(time.Duration)
	d.RateLimitBuffer = l.apply("delivery_rate_limit_buffer", config.LoadEnvDuration("DELIVERY_RATE_LIMIT_BUFFER", d.RateLimitBuffer, between(0, time.Minute))).(time.Duration)
	d.InterMessageDelay = l.apply("delivery_inter_message_delay", config.LoadEnvDuration("DELIVERY_INTER_MESSAGE_DELAY", d.InterMessageDelay, between(0, time.Minute))).(time.Duration)
	d.MaxRateLimitWaits = l.apply("delivery_max_rate_limit_waits", config.LoadEnvInt("DELIVERY_MAX_RATE_LIMIT_WAITS", d.MaxRateLimitWaits, intRange(1, 100))).(int)
	cfg.DryRun = l.apply("delivery_dry_run", config.LoadEnvBool("DELIVERY_DRY_RUN", cfg.DryRun)).(bool)

	metrics.SetFallbackActive(l.fellBack)
	metrics.RecordLoadTimestamp()

	// Always return valid config (fail-open strategy)
	return &cfg, nil
}
