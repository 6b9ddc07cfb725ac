package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	"github.com/roshhellwett/TeleAcademicBot/internal/utils/text"
)

// DefaultNoisePhrases are link captions that belong to site chrome, not notices.
var DefaultNoisePhrases = []string{
	"about us", "contact", "home", "back", "gallery",
	"archive", "click here", "apply now", "visit", "syllabus",
}

// DefaultStaleYears are years whose notices are re-posted archive material.
var DefaultStaleYears = []int{2019, 2020, 2021, 2022, 2023}

// BuilderConfig holds the acceptance rules of the notice builder.
type BuilderConfig struct {
	// MinTextLength is the shortest accepted link text, in characters.
	MinTextLength int

	// NoisePhrases are matched case-insensitively as substrings.
	NoisePhrases []string

	// StaleYears drive the ghost-year filter.
	StaleYears []int

	// TargetYears is the acceptance window. Empty means previous and current year.
	TargetYears []int

	// DateMinYear is the floor of the date extractor.
	DateMinYear int
}

// DefaultBuilderConfig returns the production acceptance rules.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		MinTextLength: 5,
		NoisePhrases:  DefaultNoisePhrases,
		StaleYears:    DefaultStaleYears,
		DateMinYear:   2018,
	}
}

// Validate checks the configuration.
func (c BuilderConfig) Validate() error {
	if c.MinTextLength < 1 {
		return fmt.Errorf("min text length must be at least 1, got %d", c.MinTextLength)
	}
	if c.DateMinYear < 1900 {
		return fmt.Errorf("date min year must be >= 1900, got %d", c.DateMinYear)
	}
	return nil
}

// Builder validates candidates and turns the accepted ones into notices.
// It is safe for concurrent use.
type Builder struct {
	cfg      BuilderConfig
	dates    *text.DateExtractor
	resolver DocResolver
	now      func() time.Time

	stale  map[int]bool
	target map[int]bool
}

// NewBuilder creates a Builder.
//
// Parameters:
//   - cfg: Acceptance rules
//   - dates: Shared date extractor (also used by the PDF resolver)
//   - resolver: Document date fallback; nil disables it
//
// Returns:
//   - *Builder: Ready to build
func NewBuilder(cfg BuilderConfig, dates *text.DateExtractor, resolver DocResolver) *Builder {
	b := &Builder{
		cfg:      cfg,
		dates:    dates,
		resolver: resolver,
		now:      time.Now,
		stale:    toSet(cfg.StaleYears),
	}
	if len(cfg.TargetYears) > 0 {
		b.target = toSet(cfg.TargetYears)
	}
	return b
}

// Build validates c and returns the notice it describes.
//
// Rejections are returned as errors, checked in this order:
//  1. ErrEmptyCandidate, ErrTooShort
//  2. ErrNavigationNoise
//  3. *ParseError{NoExtractableDate}: no date in the text nor in the linked document
//  4. ErrStaleYear: the text names a stale year and the date falls in one
//  5. ErrOutsideTargetYears
//
// Use RejectReason(err) to label a rejection for metrics.
func (b *Builder) Build(ctx context.Context, c Candidate, sourceName string) (*entity.Notice, error) {
	title := text.CollapseSpace(c.Text)
	if title == "" || !isHTTPURL(c.URL) {
		return nil, ErrEmptyCandidate
	}
	if text.CountRunes(title) < b.cfg.MinTextLength {
		return nil, ErrTooShort
	}

	lower := strings.ToLower(title)
	for _, phrase := range b.cfg.NoisePhrases {
		if strings.Contains(lower, phrase) {
			return nil, ErrNavigationNoise
		}
	}

	published, ok := b.dates.Extract(title)
	if !ok && b.resolver != nil && entity.IsDocumentURL(c.URL) {
		published, ok = b.resolver.ResolveDate(ctx, c.URL)
	}
	if !ok {
		return nil, &ParseError{Kind: NoExtractableDate}
	}

	// ゴースト通知: 古い年の再掲載を除外
	if b.stale[published.Year()] && b.mentionsStaleYear(title) {
		return nil, ErrStaleYear
	}

	now := b.now()
	if !b.targetYears(now)[published.Year()] {
		return nil, ErrOutsideTargetYears
	}

	n, err := entity.NewNotice(title, sourceName, c.URL, published, now)
	if err != nil {
		return nil, fmt.Errorf("new notice: %w", err)
	}
	return n, nil
}

func (b *Builder) mentionsStaleYear(title string) bool {
	for year := range b.stale {
		if strings.Contains(title, strconv.Itoa(year)) {
			return true
		}
	}
	return false
}

func (b *Builder) targetYears(now time.Time) map[int]bool {
	if b.target != nil {
		return b.target
	}
	y := now.Year()
	return map[int]bool{y - 1: true, y: true}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func toSet(years []int) map[int]bool {
	set := make(map[int]bool, len(years))
	for _, y := range years {
		set[y] = true
	}
	return set
}
