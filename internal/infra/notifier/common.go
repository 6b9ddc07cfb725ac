package notifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/notify"
)

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"` // seconds
	} `json:"parameters"`
}

// classifyStatus maps a non-2xx response to a DeliveryError.
//
//	429             → RateLimited
//	400, 401, 404   → PermanentConfig (bad token, unknown chat, malformed HTML)
//	403             → PermanentPermission (bot removed or muted)
//	5xx and others  → NetworkTransient
func classifyStatus(resp *http.Response, body []byte) *notify.DeliveryError {
	err := &statusError{StatusCode: resp.StatusCode, Description: describe(body)}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &notify.DeliveryError{Kind: notify.RateLimited, RetryAfter: extractRetryAfter(resp, body), Err: err}
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusNotFound:
		return &notify.DeliveryError{Kind: notify.PermanentConfig, Err: err}
	case resp.StatusCode == http.StatusForbidden:
		return &notify.DeliveryError{Kind: notify.PermanentPermission, Err: err}
	default:
		return &notify.DeliveryError{Kind: notify.NetworkTransient, Err: err}
	}
}

// extractRetryAfter extracts retry_after from the Bot API error body.
// It tries parameters.retry_after first, then falls back to the Retry-After header.
//
// Returns:
//   - time.Duration: Retry after duration (default 5s if not found)
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var apiErr apiResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Parameters.RetryAfter > 0 {
		return time.Duration(apiErr.Parameters.RetryAfter) * time.Second
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return retryAfterDefault
}

// statusError is a non-2xx Bot API reply.
type statusError struct {
	StatusCode  int
	Description string
}

func (e *statusError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("telegram: HTTP %d: %s", e.StatusCode, e.Description)
}

func describe(body []byte) string {
	var apiErr apiResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Description != "" {
		return apiErr.Description
	}
	const max = 200
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}

// redactURL drops the request URL from transport errors; it embeds the bot token.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s telegram api: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
