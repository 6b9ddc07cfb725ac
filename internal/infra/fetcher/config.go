package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"

	envconfig "github.com/roshhellwett/TeleAcademicBot/pkg/config"
)

// FetchConfig holds the configuration for page and document downloads.
type FetchConfig struct {
	// Timeout is the wall-clock budget of one page request.
	// Default: 30s
	Timeout time.Duration

	// DocumentTimeout is the wall-clock budget of one document download,
	// HEAD size check included.
	// Default: 20s
	DocumentTimeout time.Duration

	// MaxPageSize is the largest HTML page body accepted, in bytes.
	// Default: 5MB
	MaxPageSize int64

	// MaxDocumentSize is the largest document accepted, in bytes.
	// Larger documents are refused before their body is requested.
	// Default: 10MB
	MaxDocumentSize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Default: 5
	MaxRedirects int

	// SSLVerifyExempt lists hostnames whose TLS certificates are not verified.
	// Matching is exact and case-insensitive. Verification stays on for every other host.
	// Default: makautexam.net, www.makautexam.net
	SSLVerifyExempt []string

	// UserAgents is the pool a random User-Agent is drawn from per request.
	UserAgents []string
}

// DefaultUserAgents are desktop browser identities. Some university servers
// reject requests without a browser User-Agent.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() FetchConfig {
	return FetchConfig{
		Timeout:         30 * time.Second,
		DocumentTimeout: 20 * time.Second,
		MaxPageSize:     5 * 1024 * 1024,
		MaxDocumentSize: 10 * 1024 * 1024,
		MaxRedirects:    5,
		SSLVerifyExempt: []string{"makautexam.net", "www.makautexam.net"},
		UserAgents:      DefaultUserAgents,
	}
}

// Validate checks if the configuration values are valid.
func (c *FetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.DocumentTimeout <= 0 {
		return fmt.Errorf("document timeout must be positive, got %v", c.DocumentTimeout)
	}

	minSize := int64(1024)
	maxSize := int64(100 * 1024 * 1024)
	if c.MaxPageSize < minSize || c.MaxPageSize > maxSize {
		return fmt.Errorf("max page size must be between %d and %d bytes, got %d", minSize, maxSize, c.MaxPageSize)
	}
	if c.MaxDocumentSize < minSize || c.MaxDocumentSize > maxSize {
		return fmt.Errorf("max document size must be between %d and %d bytes, got %d", minSize, maxSize, c.MaxDocumentSize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	if len(c.UserAgents) == 0 {
		return fmt.Errorf("at least one user agent is required")
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
// Unset variables keep their defaults; a malformed value is an error.
//
// Environment variables:
//   - REQUEST_TIMEOUT: duration, e.g. "30s" or "30" (default: 30s)
//   - PDF_TIMEOUT: duration (default: 20s)
//   - MAX_PAGE_SIZE: integer bytes (default: 5242880)
//   - MAX_PDF_SIZE_MB: integer megabytes (default: 10)
//   - FETCH_MAX_REDIRECTS: integer (default: 5)
//   - SSL_VERIFY_EXEMPT: comma-separated hostnames (default: makautexam.net,www.makautexam.net)
func LoadConfigFromEnv() (FetchConfig, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("REQUEST_TIMEOUT"); val != "" {
		parsed, err := envconfig.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %v (expected format: '30s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("PDF_TIMEOUT"); val != "" {
		parsed, err := envconfig.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid PDF_TIMEOUT: %v", err)
		}
		cfg.DocumentTimeout = parsed
	}

	if val := os.Getenv("MAX_PAGE_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid MAX_PAGE_SIZE: %v", err)
		}
		cfg.MaxPageSize = parsed
	}

	if val := os.Getenv("MAX_PDF_SIZE_MB"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid MAX_PDF_SIZE_MB: %v", err)
		}
		cfg.MaxDocumentSize = parsed * 1024 * 1024
	}

	if val := os.Getenv("FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_REDIRECTS: %v", err)
		}
		cfg.MaxRedirects = parsed
	}

	cfg.SSLVerifyExempt = envconfig.GetEnvStringList("SSL_VERIFY_EXEMPT", cfg.SSLVerifyExempt)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
