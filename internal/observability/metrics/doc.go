// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the pipeline metrics:
//   - Scrape metrics (fetch duration, fetch errors, cooldown skips, breaker state)
//   - Notice metrics (candidates, rejections by reason, inserts, duplicates)
//   - Storage metrics (insert failures, stored notice total)
//   - Database connection pool metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint of the worker.
//
// Example usage:
//
//	import "github.com/roshhellwett/TeleAcademicBot/internal/observability/metrics"
//
//	func processSource(source string) {
//	    start := time.Now()
//	    // ... fetch page ...
//	    metrics.RecordSourceFetch(source, time.Since(start), "")
//	    metrics.RecordCandidates(source, 42)
//	}
package metrics
