// Package ingest implements the notice harvesting pipeline: per-source fetch
// behind a circuit breaker, HTML extraction, date-grounded notice building,
// deduplication and ordered hand-off to delivery.
package ingest

import (
	"errors"
	"fmt"
)

// FetchErrorKind classifies a failed page or document download.
type FetchErrorKind int

const (
	// FetchTimeout means the request exceeded its wall-clock budget.
	FetchTimeout FetchErrorKind = iota + 1
	// FetchNetworkFailure covers DNS, connection, TLS and read errors.
	FetchNetworkFailure
	// FetchHTTPStatus means the server answered with a non-2xx status.
	FetchHTTPStatus
	// FetchTooLarge means the body exceeded the configured size limit.
	FetchTooLarge
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchNetworkFailure:
		return "network_failure"
	case FetchHTTPStatus:
		return "http_status"
	case FetchTooLarge:
		return "too_large"
	default:
		return "unknown"
	}
}

// FetchError is returned by the document fetcher.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchHTTPStatus:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	case FetchTooLarge:
		return fmt.Sprintf("fetch %s: body too large: %v", e.URL, e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseErrorKind classifies a parse failure.
type ParseErrorKind int

const (
	// MalformedDocument means the page could not be parsed at all.
	MalformedDocument ParseErrorKind = iota + 1
	// NoExtractableDate means no date was found in text or attached document.
	NoExtractableDate
)

func (k ParseErrorKind) String() string {
	switch k {
	case MalformedDocument:
		return "malformed_document"
	case NoExtractableDate:
		return "no_extractable_date"
	default:
		return "unknown"
	}
}

// ParseError is returned by the HTML extractor and the notice builder.
type ParseError struct {
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Kind, e.Err)
	}
	return "parse: " + e.Kind.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Builder rejections. These are expected outcomes, not failures.
var (
	// ErrEmptyCandidate indicates missing link text or an unusable URL.
	ErrEmptyCandidate = errors.New("empty candidate")

	// ErrTooShort indicates link text shorter than the minimum title length.
	ErrTooShort = errors.New("candidate text too short")

	// ErrNavigationNoise indicates site chrome such as "Home" or "Contact".
	ErrNavigationNoise = errors.New("navigation noise")

	// ErrStaleYear indicates a re-posted notice from a stale year.
	ErrStaleYear = errors.New("stale year")

	// ErrOutsideTargetYears indicates a date outside the acceptance window.
	ErrOutsideTargetYears = errors.New("outside target years")
)

// RejectReason returns a metric label for a builder outcome.
func RejectReason(err error) string {
	var pe *ParseError
	switch {
	case errors.Is(err, ErrEmptyCandidate):
		return "empty"
	case errors.Is(err, ErrTooShort):
		return "too_short"
	case errors.Is(err, ErrNavigationNoise):
		return "noise"
	case errors.Is(err, ErrStaleYear):
		return "stale_year"
	case errors.Is(err, ErrOutsideTargetYears):
		return "outside_target_years"
	case errors.As(err, &pe):
		return pe.Kind.String()
	default:
		return "other"
	}
}
