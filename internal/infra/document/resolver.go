// Package document recovers a publication date from an attached PDF notice.
package document

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/roshhellwett/TeleAcademicBot/internal/observability/metrics"
	"github.com/roshhellwett/TeleAcademicBot/internal/utils/text"
)

// Header region of page 1, as fractions of the media box.
// University notices print "Date:" in the top-right corner.
const (
	headerMinX = 0.4
	headerMinY = 0.7
)

// US Letter, used when a page declares no MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Downloader fetches a document body with a size limit.
// *fetcher.Fetcher implements it.
type Downloader interface {
	FetchDocument(ctx context.Context, url string) ([]byte, error)
}

// Resolver implements ingest.DocResolver.
//
// Resolution order:
//  1. Info dictionary CreationDate
//  2. page 1 text inside the top-right header region
//  3. full page 1 text
//
// Every failure, parser panics included, yields ok=false.
type Resolver struct {
	downloader Downloader
	dates      *text.DateExtractor
	logger     *slog.Logger
}

// NewResolver creates a Resolver. A nil logger uses slog.Default().
func NewResolver(downloader Downloader, dates *text.DateExtractor, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{downloader: downloader, dates: dates, logger: logger}
}

// ResolveDate downloads documentURL and returns its publication date.
func (r *Resolver) ResolveDate(ctx context.Context, documentURL string) (time.Time, bool) {
	data, err := r.downloader.FetchDocument(ctx, documentURL)
	if err != nil {
		r.logger.Debug("pdf download failed",
			slog.String("url", documentURL),
			slog.Any("error", err))
		metrics.RecordDocumentDate("none")
		return time.Time{}, false
	}

	d, method, err := r.DateFromBytes(data)
	if err != nil {
		r.logger.Debug("pdf date not resolved",
			slog.String("url", documentURL),
			slog.Any("error", err))
		metrics.RecordDocumentDate("none")
		return time.Time{}, false
	}
	metrics.RecordDocumentDate(method)

	r.logger.Debug("pdf date resolved",
		slog.String("url", documentURL),
		slog.String("method", method),
		slog.Time("date", d))
	return d, true
}

// DateFromBytes extracts a date from an in-memory PDF.
// method is "metadata", "header" or "full_text".
func (r *Resolver) DateFromBytes(data []byte) (d time.Time, method string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d, method, err = time.Time{}, "", fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return time.Time{}, "", fmt.Errorf("open pdf: %w", err)
	}

	if created, ok := ParseCreationDate(reader.Trailer().Key("Info").Key("CreationDate").Text()); ok &&
		created.Year() >= r.dates.MinYear {
		return created, "metadata", nil
	}

	if reader.NumPage() < 1 {
		return time.Time{}, "", fmt.Errorf("pdf has no pages")
	}
	page := reader.Page(1)
	if page.V.IsNull() {
		return time.Time{}, "", fmt.Errorf("pdf page 1 missing")
	}

	w, h := mediaBox(page.V)
	if header := RegionText(page.Content().Text, w, h); header != "" {
		if found, ok := r.dates.Extract(header); ok {
			return found, "header", nil
		}
	}

	full, err := page.GetPlainText(nil)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("page 1 text: %w", err)
	}
	if found, ok := r.dates.Extract(full); ok {
		return found, "full_text", nil
	}
	return time.Time{}, "", fmt.Errorf("no date in pdf")
}

// ParseCreationDate parses the date part of a PDF date string ("D:YYYYMMDDHHmmSS...").
// The prefix is optional; only year, month and day are used.
func ParseCreationDate(s string) (time.Time, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 8 {
		return time.Time{}, false
	}
	d, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// RegionText reassembles the text positioned in the header region of a
// w×h page into lines, top to bottom. PDF y grows upward.
func RegionText(items []pdf.Text, w, h float64) string {
	var in []pdf.Text
	for _, t := range items {
		if t.S == "" || t.X < w*headerMinX || t.Y < h*headerMinY {
			continue
		}
		in = append(in, t)
	}
	if len(in) == 0 {
		return ""
	}

	sort.SliceStable(in, func(i, j int) bool {
		if math.Abs(in[i].Y-in[j].Y) > 1 {
			return in[i].Y > in[j].Y
		}
		return in[i].X < in[j].X
	})

	var sb strings.Builder
	prev := in[0]
	sb.WriteString(prev.S)
	for _, t := range in[1:] {
		switch {
		case math.Abs(t.Y-prev.Y) > 1:
			sb.WriteByte('\n')
		case t.X-(prev.X+prev.W) > prev.FontSize*0.25:
			sb.WriteByte(' ')
		}
		sb.WriteString(t.S)
		prev = t
	}
	return text.CollapseSpace(sb.String())
}

// mediaBox returns the page width and height, following inherited
// MediaBox entries up the page tree.
func mediaBox(v pdf.Value) (float64, float64) {
	for i := 0; i < 16 && !v.IsNull(); i++ {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		v = v.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}
