package metrics

import (
	"time"

	"github.com/sony/gobreaker"
)

// RecordSourceFetch records the duration of a source visit.
// A non-empty errorType also increments the failure counter.
func RecordSourceFetch(source string, duration time.Duration, errorType string) {
	SourceFetchDuration.WithLabelValues(source).Observe(duration.Seconds())
	if errorType != "" {
		SourceFetchErrors.WithLabelValues(source, errorType).Inc()
	}
}

// RecordSourceSkipped records a visit skipped because the source is cooling down.
func RecordSourceSkipped(source string) {
	SourceSkippedTotal.WithLabelValues(source).Inc()
}

// SetBreakerState exports the breaker state of a source.
func SetBreakerState(source string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	SourceBreakerState.WithLabelValues(source).Set(v)
}

// RecordCycle records the duration of one full scrape cycle.
func RecordCycle(duration time.Duration) {
	CycleDuration.Observe(duration.Seconds())
}

// RecordCandidates records the number of candidates extracted from a page.
func RecordCandidates(source string, count int) {
	CandidatesTotal.WithLabelValues(source).Add(float64(count))
}

// RecordRejected records one builder rejection.
func RecordRejected(source, reason string) {
	RejectedTotal.WithLabelValues(source, reason).Inc()
}

// RecordInsert records the TryInsert outcome for one accepted notice.
func RecordInsert(source string, inserted bool) {
	if inserted {
		InsertedTotal.WithLabelValues(source).Inc()
		return
	}
	DuplicateTotal.WithLabelValues(source).Inc()
}

// RecordDocumentDate records how a PDF date lookup ended ("none" on failure).
func RecordDocumentDate(method string) {
	DocumentDateTotal.WithLabelValues(method).Inc()
}

// RecordStorageFailure records one TryInsert failure.
func RecordStorageFailure(kind string) {
	StorageFailuresTotal.WithLabelValues(kind).Inc()
}

// UpdateNoticesStored updates the total count of notices in the database.
// This gauge is refreshed by the stats job.
func UpdateNoticesStored(count int64) {
	NoticesStored.Set(float64(count))
}

// UpdateDBConnectionStats updates database connection pool gauges.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
