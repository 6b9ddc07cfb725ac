// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Notice and Source, along with
// their validation rules and domain-specific errors.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

// documentExtensions lists URL path suffixes treated as downloadable documents.
var documentExtensions = []string{".pdf"}

// Notice represents a single announcement harvested from a source page.
// It is immutable once persisted. ContentHash is its identity.
type Notice struct {
	Title         string
	Source        string
	SourceURL     string
	DocumentURL   string
	PublishedDate time.Time
	ScrapedAt     time.Time
	ContentHash   string
}

// NewNotice builds a Notice and mints its content hash.
// The published date is truncated to a UTC calendar date.
//
// Parameters:
//   - title: Trimmed notice title (must be non-empty)
//   - source: Display name of the origin site
//   - sourceURL: Absolute URL where the notice was found
//   - published: Date asserted by the source (never the scrape time)
//   - scrapedAt: Ingestion timestamp
//
// Returns:
//   - *Notice: The notice, with DocumentURL set when sourceURL is a document link
//   - error: ValidationError if title or sourceURL is empty
func NewNotice(title, source, sourceURL string, published, scrapedAt time.Time) (*Notice, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}
	if sourceURL == "" {
		return nil, &ValidationError{Field: "source_url", Message: "source URL is required"}
	}

	n := &Notice{
		Title:         title,
		Source:        source,
		SourceURL:     sourceURL,
		PublishedDate: DateOf(published),
		ScrapedAt:     scrapedAt,
		ContentHash:   ContentHash(title, sourceURL),
	}
	if IsDocumentURL(sourceURL) {
		n.DocumentURL = sourceURL
	}
	return n, nil
}

// ContentHash returns the hex SHA-256 digest identifying a (title, sourceURL) pair.
// A NUL separator keeps ("ab", "c") and ("a", "bc") apart.
func ContentHash(title, sourceURL string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + sourceURL))
	return hex.EncodeToString(sum[:])
}

// IsDocumentURL reports whether rawURL points at a document (PDF) by its path suffix.
// Query strings and fragments are ignored; the match is case-insensitive.
func IsDocumentURL(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	p = strings.ToLower(p)
	for _, ext := range documentExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
