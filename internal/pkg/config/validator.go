package config

import (
	"cmp"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts the standard five-field format: "minute hour day month weekday".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a cron expression using the robfig/cron/v3 parser.
//
// Example:
//
//	ValidateCronSchedule("0 * * * *")   // nil, hourly
//	ValidateCronSchedule("0 */6 * * *") // nil, every 6 hours
//	ValidateCronSchedule("61 * * * *")  // error
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}

// ValidateTimezone validates an IANA timezone name by loading it.
// This depends on tzdata being available to the process.
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("invalid timezone: cannot be empty")
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}
	return nil
}

// ValidateDuration reports an error unless min <= d <= max.
func ValidateDuration(d, min, max time.Duration) error {
	return inRange(d, min, max)
}

// ValidateIntRange reports an error unless min <= v <= max.
func ValidateIntRange(v, min, max int) error {
	return inRange(v, min, max)
}

func inRange[T cmp.Ordered](v, lo, hi T) error {
	switch {
	case lo > hi:
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", lo, hi)
	case v < lo:
		return fmt.Errorf("%v is below minimum %v", v, lo)
	case v > hi:
		return fmt.Errorf("%v exceeds maximum %v", v, hi)
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is greater than zero.
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}
	return nil
}

// ValidateYears validates a list of calendar years.
// Each must be a four-digit year; duplicates are rejected.
func ValidateYears(years []int) error {
	seen := make(map[int]bool, len(years))
	for _, y := range years {
		if y < 1900 || y > 9999 {
			return fmt.Errorf("year %d is out of range [1900, 9999]", y)
		}
		if seen[y] {
			return fmt.Errorf("duplicate year %d", y)
		}
		seen[y] = true
	}
	return nil
}
