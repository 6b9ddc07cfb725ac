package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for delivery monitoring
var (
	// deliveryAttemptsTotal tracks every send attempt per channel and outcome
	deliveryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_delivery_attempts_total",
			Help: "Total number of send attempts",
		},
		[]string{"channel", "outcome"}, // outcome: success|rate_limited|network_transient|permanent_config|permanent_permission
	)

	// deliveryResultTotal tracks final per-message results
	deliveryResultTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notice_delivery_total",
			Help: "Total number of notices delivered or abandoned",
		},
		[]string{"channel", "status"}, // status: delivered|abandoned
	)

	// deliveryDuration tracks send duration
	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notice_delivery_duration_seconds",
			Help:    "Send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"channel"},
	)

	// rateLimitWaitSeconds tracks time spent honouring retry_after
	rateLimitWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notice_delivery_rate_limit_wait_seconds",
			Help:    "Time spent waiting for rate limits in seconds",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"channel"},
	)
)

// RecordAttempt records one send attempt.
//
// Parameters:
//   - channel: The channel name (e.g., "telegram")
//   - outcome: "success" or a DeliveryErrorKind string
//   - duration: How long the send took
func RecordAttempt(channel, outcome string, duration time.Duration) {
	deliveryAttemptsTotal.WithLabelValues(channel, outcome).Inc()
	deliveryDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordDelivered records a message that reached the destination.
func RecordDelivered(channel string) {
	deliveryResultTotal.WithLabelValues(channel, "delivered").Inc()
}

// RecordAbandoned records a message given up on.
func RecordAbandoned(channel string) {
	deliveryResultTotal.WithLabelValues(channel, "abandoned").Inc()
}

// RecordRateLimitWait records the time spent waiting after a rate-limit signal.
func RecordRateLimitWait(channel string, wait time.Duration) {
	rateLimitWaitSeconds.WithLabelValues(channel).Observe(wait.Seconds())
}
