package ingest

import (
	"context"
	"time"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/notify"
)

// Candidate is one hyperlink found on a listing page, with its context text.
type Candidate struct {
	Text string
	URL  string
}

// PageFetcher downloads a listing page.
// It returns *FetchError on failure.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns a page into candidates in document order.
// It returns *ParseError when the page cannot be parsed.
type Extractor interface {
	Extract(page []byte, baseURL string) ([]Candidate, error)
}

// DocResolver recovers the publication date of an attached document.
// Every failure yields ok=false.
type DocResolver interface {
	ResolveDate(ctx context.Context, documentURL string) (time.Time, bool)
}

// Breaker gates calls per source key.
// *circuitbreaker.SourceBreakers implements it.
type Breaker interface {
	Execute(ctx context.Context, source string, fn func(context.Context) error) error
}

// Store is the dedup repository as seen by the pipeline.
type Store interface {
	// TryInsert returns true only when the notice was newly recorded.
	TryInsert(ctx context.Context, n *entity.Notice) bool
}

// Deliverer sends one source's new notices, oldest first.
// *notify.Service implements it.
type Deliverer interface {
	DeliverInOrder(ctx context.Context, notices []*entity.Notice) notify.Report
}
