// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created for each scrape cycle, each source within a cycle, and each
// delivery batch. No exporter is configured by default; the SDK provider still
// assigns trace IDs so log lines from one cycle can be correlated.
//
// Example usage:
//
//	import "github.com/roshhellwett/TeleAcademicBot/internal/observability/tracing"
//
//	func main() {
//	    shutdown := tracing.InitTracer()
//	    defer func() { _ = shutdown(context.Background()) }()
//	}
//
//	func processSource(ctx context.Context) {
//	    ctx, span := tracing.StartSpan(ctx, "ingest.source")
//	    defer span.End()
//	    // ... fetch, extract, deliver ...
//	}
package tracing
