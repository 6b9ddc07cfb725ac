package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roshhellwett/TeleAcademicBot/internal/observability/tracing"
)

// NewLogger builds the worker logger on stdout.
// LOG_LEVEL selects debug, info, warn or error (default info) and
// LOG_FORMAT=text switches from JSON to logfmt for local runs.
func NewLogger() *slog.Logger {
	text := strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "text")
	return New(os.Stdout, text, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// NewTextLogger builds a logfmt logger on stderr, keeping stdout free for CLI output.
func NewTextLogger() *slog.Logger {
	return New(os.Stderr, true, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// New creates a logger writing to w. Source locations are added at debug level.
func New(w io.Writer, text bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level, AddSource: level <= slog.LevelDebug}
	if text {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a LOG_LEVEL string to a slog.Level. Unknown values are info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "warning":
		return slog.LevelWarn
	default:
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return slog.LevelInfo
		}
		return level
	}
}

// WithTrace returns a logger that includes the trace ID of the span in ctx.
func WithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	traceID := tracing.TraceID(ctx)
	if traceID == "" {
		return logger
	}
	return logger.With(slog.String("trace_id", traceID))
}

// WithCycle tags base with cycle_id (and trace_id when ctx carries a span)
// and stores the result in ctx, so every stage of a harvest cycle logs
// under the same identifiers.
func WithCycle(ctx context.Context, base *slog.Logger, cycleID string) (context.Context, *slog.Logger) {
	logger := WithTrace(ctx, base.With(slog.String("cycle_id", cycleID)))
	return WithLogger(ctx, logger), logger
}

// FromContext returns the logger stored by WithLogger, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

type loggerKey struct{}
