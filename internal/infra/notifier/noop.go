package notifier

import (
	"context"
	"log/slog"

	"github.com/roshhellwett/TeleAcademicBot/internal/utils/text"
)

// NoOpChannel is the dry-run implementation of notify.Channel.
// It logs what would have been sent and always succeeds, so the full pipeline
// (dedup insert included) runs without touching Telegram.
type NoOpChannel struct {
	logger *slog.Logger
}

// NewNoOpChannel creates a new NoOpChannel instance.
func NewNoOpChannel(logger *slog.Logger) *NoOpChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoOpChannel{logger: logger}
}

// Name implements notify.Channel.
func (n *NoOpChannel) Name() string { return "dry_run" }

// Send logs the message preview and returns nil.
func (n *NoOpChannel) Send(ctx context.Context, msg string) error {
	n.logger.InfoContext(ctx, "dry run: message not sent",
		slog.Int("length", text.CountRunes(msg)),
		slog.String("preview", text.Truncate(text.CollapseSpace(msg), 120)))
	return nil
}
