package entity

import (
	"fmt"
	"time"
)

// Source represents one university announcement page in the registry.
// Sources are processed in ascending Priority order (1 is highest).
type Source struct {
	Key      string `yaml:"key" json:"key"`
	URL      string `yaml:"url" json:"url"`
	Priority int    `yaml:"priority" json:"priority"`
	Name     string `yaml:"name" json:"name"`
}

// Validate validates the Source entity fields.
func (s *Source) Validate() error {
	if s.Key == "" {
		return &ValidationError{Field: "key", Message: "key is required"}
	}
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if s.Priority < 1 {
		return &ValidationError{Field: "priority", Message: fmt.Sprintf("priority must be >= 1, got %d", s.Priority)}
	}
	if err := ValidateURL(s.URL); err != nil {
		return fmt.Errorf("source %s: %w", s.Key, err)
	}
	return nil
}

// SourceHealth tracks consecutive fetch failures for one source.
// A zero CooldownUntil means the source is not cooling down.
type SourceHealth struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	CooldownUntil       time.Time `json:"cooldown_until,omitempty"`
}

// CoolingDown reports whether fetch attempts must be skipped at now.
func (h SourceHealth) CoolingDown(now time.Time) bool {
	return !h.CooldownUntil.IsZero() && now.Before(h.CooldownUntil)
}
