package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/notify"
)

// TelegramConfig contains configuration for the Telegram Bot API.
type TelegramConfig struct {
	// BotToken authenticates the bot. Never logged.
	BotToken string

	// ChatID is the channel or group notices are posted to.
	ChatID string

	// APIURL is the Bot API base URL (overridable for tests and local Bot API servers).
	APIURL string

	// Timeout is the HTTP request timeout for sendMessage calls.
	Timeout time.Duration

	// RequestsPerSecond and Burst bound outbound calls regardless of caller pacing.
	RequestsPerSecond float64
	Burst             int
}

// DefaultTelegramConfig returns the production settings without credentials.
func DefaultTelegramConfig() TelegramConfig {
	return TelegramConfig{
		APIURL:            "https://api.telegram.org",
		Timeout:           60 * time.Second,
		RequestsPerSecond: 1,
		Burst:             1,
	}
}

// TelegramChannel posts messages through the Bot API sendMessage method.
// It makes exactly one request per Send; retries belong to notify.Service.
type TelegramChannel struct {
	config     TelegramConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewTelegramChannel creates a new TelegramChannel.
//
// The channel is initialized with:
//   - HTTP client with configured timeout
//   - Rate limiter from RequestsPerSecond/Burst (Telegram allows about one
//     message per second per chat)
//
// Parameters:
//   - config: Bot token, chat ID, API URL and timeout
//   - logger: Structured logger (slog.Default when nil)
//
// Returns:
//   - *TelegramChannel: Configured Telegram channel
func NewTelegramChannel(config TelegramConfig, logger *slog.Logger) *TelegramChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramChannel{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    newChatLimiter(config.RequestsPerSecond, config.Burst),
		logger:     logger,
	}
}

// Name implements notify.Channel.
func (t *TelegramChannel) Name() string { return "telegram" }

// sendMessageRequest is the JSON body of sendMessage.
type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send posts text to the configured chat.
// This method implements the notify.Channel interface.
//
// It performs the following steps:
//  1. Generate unique request_id for tracing
//  2. Apply rate limiting
//  3. POST sendMessage and classify the response
//
// Returns:
//   - nil: Telegram accepted the message
//   - *notify.DeliveryError: classified failure (see classifyStatus)
func (t *TelegramChannel) Send(ctx context.Context, text string) error {
	log := t.logger.With(slog.String("request_id", uuid.New().String()))

	if err := waitTurn(ctx, t.limiter); err != nil {
		return err
	}

	start := time.Now()
	err := t.sendMessage(ctx, text)
	if err != nil {
		log.Debug("telegram sendMessage failed",
			slog.Any("error", err),
			slog.Duration("duration", time.Since(start)))
		return err
	}

	log.Debug("telegram sendMessage ok", slog.Duration("duration", time.Since(start)))
	return nil
}

func (t *TelegramChannel) sendMessage(ctx context.Context, text string) error {
	payload := sendMessageRequest{
		ChatID:                t.config.ChatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return &notify.DeliveryError{Kind: notify.PermanentConfig, Err: fmt.Errorf("marshal sendMessage payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(), bytes.NewReader(jsonData))
	if err != nil {
		return &notify.DeliveryError{Kind: notify.PermanentConfig, Err: fmt.Errorf("create http request: %w", redactURL(err))}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &notify.DeliveryError{Kind: notify.NetworkTransient, Err: redactURL(err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return classifyStatus(resp, body)
}

func (t *TelegramChannel) endpoint() string {
	return strings.TrimRight(t.config.APIURL, "/") + "/bot" + t.config.BotToken + "/sendMessage"
}
