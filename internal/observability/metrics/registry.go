// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scrape metrics track per-source fetch behaviour
var (
	// SourceFetchDuration measures time to fetch a source page
	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Time taken to fetch a source page",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source"},
	)

	// SourceFetchErrors counts fetch/parse failures charged to a source's breaker
	SourceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_errors_total",
			Help: "Total number of source fetch or parse failures",
		},
		[]string{"source", "error_type"},
	)

	// SourceSkippedTotal counts cycles where a source was skipped during cooldown
	SourceSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_skipped_total",
			Help: "Total number of source visits skipped because the breaker was open",
		},
		[]string{"source"},
	)

	// SourceBreakerState is 0 closed, 1 half-open, 2 open
	SourceBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	// CycleDuration measures a full scrape cycle
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_cycle_duration_seconds",
			Help:    "Time taken by one scrape cycle over all sources",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
	)
)

// Notice metrics track the builder and dedup outcomes
var (
	// CandidatesTotal counts (text, url) candidates extracted per source
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_candidates_total",
			Help: "Total number of link candidates extracted",
		},
		[]string{"source"},
	)

	// RejectedTotal counts candidates rejected by the builder
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_rejected_total",
			Help: "Total number of candidates rejected by the notice builder",
		},
		[]string{"source", "reason"},
	)

	// InsertedTotal counts notices stored for the first time
	InsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_inserted_total",
			Help: "Total number of new notices stored",
		},
		[]string{"source"},
	)

	// DuplicateTotal counts accepted notices that were already stored
	DuplicateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_duplicate_total",
			Help: "Total number of accepted notices already present in the store",
		},
		[]string{"source"},
	)

	// DocumentDateTotal counts PDF date lookups by method (metadata|header|full_text|none)
	DocumentDateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_date_resolved_total",
			Help: "Total number of PDF date lookups by resolution method",
		},
		[]string{"method"},
	)

	// NoticesStored tracks total number of notices in the database
	NoticesStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notices_stored",
			Help: "Total number of notices in the database",
		},
	)

	// StorageFailuresTotal counts TryInsert failures by kind
	StorageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_storage_failures_total",
			Help: "Total number of notice insert failures",
		},
		[]string{"kind"},
	)
)

// Database metrics track the connection pool
var (
	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)
