// Package config provides small environment-variable getters with defaults.
// Invalid values are logged and replaced by the default; these helpers never fail.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the value of key and whether it is set to something non-empty.
func lookup(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// parseOr parses the value of key, logging and returning def when parse fails.
func parseOr[T any](key string, def T, kind string, parse func(string) (T, error)) T {
	raw, ok := lookup(key)
	if !ok {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		slog.Warn("invalid "+kind+" in environment, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Any("default", def),
			slog.String("error", err.Error()))
		return def
	}
	return v
}

// GetEnvString returns the value of key, or defaultValue when unset or empty.
//
// Example:
//
//	apiURL := GetEnvString("TELEGRAM_API_URL", "https://api.telegram.org")
func GetEnvString(key, defaultValue string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return defaultValue
}

// GetEnvInt returns key parsed as an integer (surrounding spaces allowed).
//
// Example:
//
//	budget := GetEnvInt("DELIVERY_RETRY_BUDGET", 5)
func GetEnvInt(key string, defaultValue int) int {
	return parseOr(key, defaultValue, "integer", func(s string) (int, error) {
		return strconv.Atoi(strings.TrimSpace(s))
	})
}

// GetEnvDuration returns key parsed by ParseDuration, so both "5m" and a
// bare "300" (seconds) are accepted.
//
// Example:
//
//	timeout := GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return parseOr(key, defaultValue, "duration", ParseDuration)
}

// ParseDuration parses a Go duration string, or a bare integer as seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// GetEnvStringList returns key split by SplitList. A value with no
// non-blank items yields defaultValue.
//
// Example:
//
//	// SSL_VERIFY_EXEMPT="makautexam.net, www.makautexam.net"
//	hosts := GetEnvStringList("SSL_VERIFY_EXEMPT", []string{"makautexam.net"})
func GetEnvStringList(key string, defaultValue []string) []string {
	raw, ok := lookup(key)
	if !ok {
		return defaultValue
	}
	if items := SplitList(raw); len(items) > 0 {
		return items
	}
	return defaultValue
}

// GetEnvIntList returns key parsed by ParseIntList. One bad element rejects
// the whole list; a partially parsed list is never used.
//
// Example:
//
//	years := GetEnvIntList("TARGET_YEARS", []int{2025, 2026})
func GetEnvIntList(key string, defaultValue []int) []int {
	return parseOr(key, defaultValue, "integer list", func(s string) ([]int, error) {
		values, err := ParseIntList(s)
		if err == nil && len(values) == 0 {
			err = fmt.Errorf("no integers in %q", s)
		}
		return values, err
	})
}

// SplitList splits s on commas, trimming whitespace and dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseIntList parses a comma-separated list of integers.
func ParseIntList(s string) ([]int, error) {
	items := SplitList(s)
	values := make([]int, 0, len(items))
	for _, item := range items {
		v, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", item, err)
		}
		values = append(values, v)
	}
	return values, nil
}
