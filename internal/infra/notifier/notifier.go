// Package notifier provides the messaging clients behind notify.Channel.
//
// The package includes a Telegram Bot API client and a no-op channel that
// only logs, used when DELIVERY_DRY_RUN is set. Both return *notify.DeliveryError
// so the delivery state machine can classify failures without knowing the transport.
package notifier

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	envconfig "github.com/roshhellwett/TeleAcademicBot/pkg/config"

	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/notify"
)

var (
	_ notify.Channel = (*TelegramChannel)(nil)
	_ notify.Channel = (*NoOpChannel)(nil)
)

// ErrMissingCredentials is returned when delivery is enabled without BOT_TOKEN or CHANNEL_ID.
var ErrMissingCredentials = errors.New("BOT_TOKEN and CHANNEL_ID are required unless DELIVERY_DRY_RUN is set")

// Config selects and configures the delivery channel.
type Config struct {
	// DryRun replaces Telegram with a channel that only logs.
	DryRun bool

	// Telegram holds the Bot API settings; ignored when DryRun is set.
	Telegram TelegramConfig
}

// DefaultConfig returns a Telegram configuration without credentials.
func DefaultConfig() Config {
	return Config{
		Telegram: DefaultTelegramConfig(),
	}
}

// Validate checks the configuration. Credentials are only required for real delivery.
func (c Config) Validate() error {
	if c.DryRun {
		return nil
	}
	if c.Telegram.BotToken == "" || c.Telegram.ChatID == "" {
		return ErrMissingCredentials
	}
	if _, err := url.ParseRequestURI(c.Telegram.APIURL); err != nil {
		return fmt.Errorf("invalid TELEGRAM_API_URL: %w", err)
	}
	if c.Telegram.Timeout <= 0 {
		return fmt.Errorf("telegram timeout must be positive, got %v", c.Telegram.Timeout)
	}
	if c.Telegram.RequestsPerSecond <= 0 || c.Telegram.Burst < 1 {
		return fmt.Errorf("telegram rate limit must be positive, got %v/s burst %d",
			c.Telegram.RequestsPerSecond, c.Telegram.Burst)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// dryRun comes from the worker configuration, which owns DELIVERY_DRY_RUN.
//
// Environment variables:
//   - BOT_TOKEN: Telegram bot token (required unless dry run)
//   - CHANNEL_ID: target chat, e.g. "@makaut_notices" or "-1001234567890"
//   - TELEGRAM_API_URL: Bot API base URL (default: https://api.telegram.org)
//   - TELEGRAM_TIMEOUT: duration (default: 60s)
func LoadConfigFromEnv(dryRun bool) (Config, error) {
	cfg := DefaultConfig()
	cfg.DryRun = dryRun
	cfg.Telegram.BotToken = envconfig.GetEnvString("BOT_TOKEN", "")
	cfg.Telegram.ChatID = envconfig.GetEnvString("CHANNEL_ID", "")
	cfg.Telegram.APIURL = envconfig.GetEnvString("TELEGRAM_API_URL", cfg.Telegram.APIURL)
	cfg.Telegram.Timeout = envconfig.GetEnvDuration("TELEGRAM_TIMEOUT", cfg.Telegram.Timeout)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// NewChannel builds the channel selected by cfg.
//
// Returns:
//   - notify.Channel: *NoOpChannel in dry-run mode, *TelegramChannel otherwise
//   - error: cfg.Validate() failure
func NewChannel(cfg Config, logger *slog.Logger) (notify.Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DryRun {
		return NewNoOpChannel(logger), nil
	}
	return NewTelegramChannel(cfg.Telegram, logger), nil
}

// retryAfterDefault is used when a 429 carries no usable hint.
const retryAfterDefault = 5 * time.Second
