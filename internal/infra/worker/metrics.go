package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roshhellwett/TeleAcademicBot/internal/pkg/config"
	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/ingest"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// worker-specific metrics for the harvest loop and the stats job.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_cycle_runs_total: Harvest cycles by status (completed/interrupted)
//   - worker_cycle_last_success_timestamp: Unix timestamp of last completed cycle
//   - worker_messages_total: Delivery outcomes by status (delivered/abandoned)
//   - worker_stats_job_runs_total: Stats job runs by status (success/failure)
//   - worker_stats_job_duration_seconds: Duration histogram of the stats job
//   - worker_stats_job_last_success_timestamp: Unix timestamp of last successful stats run
//
// Example usage:
//
//	metrics := NewWorkerMetrics()
//	metrics.MustRegister()
//
//	svc.OnCycle = metrics.ObserveCycle
type WorkerMetrics struct {
	// Embedded configuration metrics
	*config.ConfigMetrics

	// CycleRunsTotal counts harvest cycles.
	// Type: Counter
	// Labels: status (completed, interrupted)
	CycleRunsTotal *prometheus.CounterVec

	// CycleLastSuccessTimestamp records when the last cycle visited every source.
	// Type: Gauge
	// Usage: alert when it stops moving
	CycleLastSuccessTimestamp prometheus.Gauge

	// MessagesTotal counts delivery outcomes per message.
	// Type: Counter
	// Labels: status (delivered, abandoned)
	MessagesTotal *prometheus.CounterVec

	// StatsJobRunsTotal counts the total number of stats job runs.
	// Type: Counter
	// Labels: status (success, failure)
	StatsJobRunsTotal *prometheus.CounterVec

	// StatsJobDurationSeconds measures the duration of the stats job.
	// Type: Histogram
	// Buckets: 10ms .. 30s (a COUNT query and a pool snapshot)
	StatsJobDurationSeconds prometheus.Histogram

	// StatsJobLastSuccessTimestamp records the Unix timestamp of the last successful run.
	// Type: Gauge
	StatsJobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics initialized.
// Metrics are registered with the default registry through promauto, so it
// must be called once per process.
//
// Returns:
//   - *WorkerMetrics: Initialized metrics
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cycle_runs_total",
			Help: "Total number of harvest cycles by status (completed/interrupted)",
		}, []string{"status"}),

		CycleLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last completed harvest cycle",
		}),

		MessagesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_messages_total",
			Help: "Total number of notice messages by delivery outcome",
		}, []string{"status"}),

		StatsJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_stats_job_runs_total",
			Help: "Total number of stats job runs by status (success/failure)",
		}, []string{"status"}),

		StatsJobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_stats_job_duration_seconds",
			Help:    "Duration of stats job execution in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),

		StatsJobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_stats_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful stats job run",
		}),
	}
}

// MustRegister is a no-op method for API compatibility.
// Metrics are automatically registered via promauto when created in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
	// No-op: metrics are auto-registered via promauto
}

// ObserveCycle records the outcome of one harvest cycle.
// Its signature matches ingest.CycleObserver.
//
// Example:
//
//	svc.OnCycle = metrics.ObserveCycle
func (m *WorkerMetrics) ObserveCycle(stats *ingest.CycleStats, err error) {
	if err != nil {
		m.CycleRunsTotal.WithLabelValues("interrupted").Inc()
	} else {
		m.CycleRunsTotal.WithLabelValues("completed").Inc()
		m.CycleLastSuccessTimestamp.SetToCurrentTime()
	}
	if stats == nil {
		return
	}
	m.MessagesTotal.WithLabelValues("delivered").Add(float64(stats.Delivered))
	m.MessagesTotal.WithLabelValues("abandoned").Add(float64(stats.Abandoned))
}

// RecordJobRun increments the stats job counter for the given status.
// Status should be either "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.StatsJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes the duration of a stats job execution, in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.StatsJobDurationSeconds.Observe(seconds)
}

// RecordLastSuccess records the current time as the last successful stats job completion.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.StatsJobLastSuccessTimestamp.SetToCurrentTime()
}
