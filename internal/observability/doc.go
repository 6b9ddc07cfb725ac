// Package observability groups what the harvester exposes about itself.
//
// A harvest cycle is one trace (tracing), logs under one cycle_id
// (logging) and moves the counters scraped from :METRICS_PORT/metrics
// (metrics). Each subpackage can be used on its own; the worker wires
// all three in cmd/worker.
package observability
