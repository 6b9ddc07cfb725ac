// Package config implements the fail-open configuration loaders used by the worker.
//
// Every loader reads one environment variable, parses and validates it, and
// falls back to the supplied default on any failure. A fallback never stops the
// process; it is reported through ConfigLoadResult.Warnings so the caller can log
// it and record it in ConfigMetrics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	envconfig "github.com/roshhellwett/TeleAcademicBot/pkg/config"
)

// ConfigLoadResult represents the result of loading a configuration value.
//
// Fields:
//   - Value: The loaded configuration value (the default if validation failed)
//   - Warnings: One message per fallback applied
//   - FallbackApplied: True if the default value was used due to a bad value
//
// Example:
//
//	result := LoadEnvDuration("SCRAPE_INTERVAL", 300*time.Second, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        logger.Warn("configuration fallback", slog.String("warning", warning))
//	    }
//	}
//	interval := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

func loaded(v interface{}) ConfigLoadResult {
	return ConfigLoadResult{Value: v}
}

// fallback builds the result for a rejected value.
// Warning format: "Invalid {envKey}='{value}': {reason}, falling back to default '{default}'"
func fallback(envKey, raw string, reason interface{}, defaultValue interface{}) ConfigLoadResult {
	return ConfigLoadResult{
		Value: defaultValue,
		Warnings: []string{fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey, raw, reason, defaultValue,
		)},
		FallbackApplied: true,
	}
}

// LoadEnvWithFallback loads a string value with validation and automatic
// fallback to default on validation failure.
//
// Loading behavior:
//  1. Not set or empty: default value, no warning
//  2. Set and valid (or validator nil): the environment value
//  3. Set and invalid: default value plus a warning
//
// Example:
//
//	result := LoadEnvWithFallback("STATS_CRON", "0 * * * *", ValidateCronSchedule)
//	schedule := result.Value.(string)
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return loaded(defaultValue)
	}
	if validator != nil {
		if err := validator(value); err != nil {
			return fallback(envKey, value, err, defaultValue)
		}
	}
	return loaded(value)
}

// LoadEnvDuration loads a duration value with parsing, validation, and
// automatic fallback to default on failure.
//
// Accepted formats are Go duration strings ("30s", "5m", "1h30m") and bare
// integers, read as seconds ("300").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return loaded(defaultValue)
	}

	d, err := envconfig.ParseDuration(raw)
	if err != nil {
		return fallback(envKey, raw, err, defaultValue)
	}
	if validator != nil {
		if err := validator(d); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}
	return loaded(d)
}

// LoadEnvInt loads an integer value with parsing, validation, and automatic
// fallback to default on failure.
//
// Example:
//
//	result := LoadEnvInt("BREAKER_THRESHOLD", 3, func(v int) error {
//	    return ValidateIntRange(v, 1, 100)
//	})
//	threshold := result.Value.(int)
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return loaded(defaultValue)
	}

	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback(envKey, raw, "invalid integer format", defaultValue)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}
	return loaded(v)
}

// LoadEnvBool loads a boolean value with automatic fallback to default on failure.
// Accepted spellings are those of strconv.ParseBool.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return loaded(defaultValue)
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback(envKey, raw, "invalid boolean format, expected 'true' or 'false'", defaultValue)
	}
	return loaded(v)
}

// LoadEnvIntList loads a comma-separated integer list with validation and
// automatic fallback to default on failure. An empty list counts as invalid.
//
// Example:
//
//	result := LoadEnvIntList("STALE_YEARS", []int{2019, 2020}, ValidateYears)
//	stale := result.Value.([]int)
func LoadEnvIntList(envKey string, defaultValue []int, validator func([]int) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return loaded(defaultValue)
	}

	values, err := envconfig.ParseIntList(raw)
	if err != nil {
		return fallback(envKey, raw, err, defaultValue)
	}
	if len(values) == 0 {
		return fallback(envKey, raw, "empty list", defaultValue)
	}
	if validator != nil {
		if err := validator(values); err != nil {
			return fallback(envKey, raw, err, defaultValue)
		}
	}
	return loaded(values)
}
