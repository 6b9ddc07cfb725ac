// Package logging builds the slog loggers used by the worker and the notices CLI
// and carries a cycle-scoped logger through context.
//
// The worker logs JSON on stdout; LOG_LEVEL and LOG_FORMAT adjust it.
// Inside a cycle, stages call FromContext to pick up the cycle_id and
// trace_id attached by WithCycle:
//
//	ctx, logger := logging.WithCycle(ctx, baseLogger, cycleID)
//	logger.Info("cycle started")
//	...
//	logging.FromContext(ctx).Warn("fetch failed", slog.String("source", key))
package logging
