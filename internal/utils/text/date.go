package text

import (
	"regexp"
	"strings"
	"time"
)

// DefaultMinYear is the earliest year a matched date may carry.
// Reference numbers and old archive stamps below it are ignored.
const DefaultMinYear = 2018

// datePatterns are tried in priority order. Each has exactly one capture group.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Date[sd]?[:\s]*(\d{2}[-/.]\d{2}[-/.]\d{4})`),
	regexp.MustCompile(`(\d{2}[-/.]\d{2}[-/.]\d{4})`),
	regexp.MustCompile(`(\d{4}[-/.]\d{2}[-/.]\d{2})`),
}

var dateLayouts = []string{"02/01/2006", "2006/01/02"}

var separatorReplacer = strings.NewReplacer("-", "/", ".", "/")

// DateExtractor finds the first plausible calendar date in free text.
// It is pure and safe for concurrent use.
type DateExtractor struct {
	// MinYear rejects matches whose year is below it.
	MinYear int
}

// NewDateExtractor returns an extractor with the given year floor.
// A non-positive minYear selects DefaultMinYear.
func NewDateExtractor(minYear int) *DateExtractor {
	if minYear <= 0 {
		minYear = DefaultMinYear
	}
	return &DateExtractor{MinYear: minYear}
}

// Extract returns the first date found in s, as midnight UTC.
//
// Patterns are tried in order:
//  1. a "Date", "Dated" or "Dates" label followed by DD-MM-YYYY
//  2. bare DD-MM-YYYY
//  3. YYYY-MM-DD
//
// "-", "/" and "." are accepted as separators. Within a pattern every
// occurrence is tried left to right; an occurrence that is not a real
// calendar date or falls below MinYear is skipped.
//
// Example:
//
//	e := NewDateExtractor(2018)
//	d, ok := e.Extract("Dated: 16.01.2026") // 2026-01-16, true
//	_, ok = e.Extract("Ref no 2023")        // ok == false
func (e *DateExtractor) Extract(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	s = CollapseSpace(s)

	for _, re := range datePatterns {
		for _, m := range re.FindAllStringSubmatch(s, -1) {
			if d, ok := e.parse(m[1]); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func (e *DateExtractor) parse(raw string) (time.Time, bool) {
	normalized := separatorReplacer.Replace(raw)
	for _, layout := range dateLayouts {
		d, err := time.Parse(layout, normalized)
		if err != nil {
			continue
		}
		if d.Year() < e.MinYear {
			return time.Time{}, false
		}
		return d, true
	}
	return time.Time{}, false
}
