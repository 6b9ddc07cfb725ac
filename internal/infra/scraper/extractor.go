// Package scraper turns notice listing pages into link candidates.
package scraper

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/ingest"
	"github.com/roshhellwett/TeleAcademicBot/internal/utils/text"
)

// ExtractorConfig holds the thresholds of the context heuristic.
type ExtractorConfig struct {
	// ParentTextCeiling: a sole link's parent text is used when shorter than this.
	ParentTextCeiling int
	// MaxSiblings bounds how many previous siblings are inspected.
	MaxSiblings int
	// MaxContextChars stops the sibling walk once this much text is collected.
	MaxContextChars int
	// MaxSiblingTextLen: sibling text nodes at or above this length are ignored.
	MaxSiblingTextLen int
}

// DefaultExtractorConfig returns the thresholds tuned for the MAKAUT pages.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		ParentTextCeiling: 300,
		MaxSiblings:       10,
		MaxContextChars:   150,
		MaxSiblingTextLen: 100,
	}
}

// NoticeExtractor implements ingest.Extractor with goquery.
// It is stateless and safe for concurrent use.
type NoticeExtractor struct {
	config ExtractorConfig
}

// NewNoticeExtractor creates a NoticeExtractor.
func NewNoticeExtractor(config ExtractorConfig) *NoticeExtractor {
	return &NoticeExtractor{config: config}
}

// Extract returns one candidate per hyperlink, in document order.
//
// A link's text is chosen as follows:
//  1. If it is the only link inside its parent and the parent's visible text
//     is non-empty and shorter than ParentTextCeiling, the parent's text.
//  2. Otherwise, short text nodes among its previous siblings (elements are
//     skipped) followed by the link's own text.
//
// Every href is resolved against baseURL, so a fragment-only link points back
// at the listing page. An href that does not parse is kept verbatim; the
// builder rejects it as a non-HTTP URL.
func (e *NoticeExtractor) Extract(page []byte, baseURL string) ([]ingest.Candidate, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ingest.ParseError{Kind: ingest.MalformedDocument, Err: fmt.Errorf("base URL: %w", err)}
	}
	if len(bytes.TrimSpace(page)) == 0 {
		return nil, &ingest.ParseError{Kind: ingest.MalformedDocument, Err: fmt.Errorf("empty document")}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &ingest.ParseError{Kind: ingest.MalformedDocument, Err: err}
	}

	var candidates []ingest.Candidate
	doc.Find("a[href]").Each(func(i int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		target := href
		if ref, err := url.Parse(href); err == nil {
			target = base.ResolveReference(ref).String()
		} else {
			slog.Debug("unparseable href kept verbatim",
				slog.Int("index", i),
				slog.String("href", href))
		}

		candidates = append(candidates, ingest.Candidate{
			Text: e.contextText(a),
			URL:  target,
		})
	})

	return candidates, nil
}

func (e *NoticeExtractor) contextText(a *goquery.Selection) string {
	link := a.Nodes[0]
	own := nodeText(link)

	if parent := a.Parent(); parent.Length() > 0 && parent.Find("a").Length() == 1 {
		pt := nodeText(parent.Nodes[0])
		if pt != "" && text.CountRunes(pt) < e.config.ParentTextCeiling {
			return pt
		}
	}

	var parts []string
	collected := 0
	n := link.PrevSibling
	for steps := 0; n != nil && steps < e.config.MaxSiblings && collected < e.config.MaxContextChars; steps++ {
		if n.Type == html.TextNode {
			t := text.CollapseSpace(n.Data)
			if t != "" && text.CountRunes(t) < e.config.MaxSiblingTextLen {
				parts = append([]string{t}, parts...)
				collected += text.CountRunes(t)
			}
		}
		n = n.PrevSibling
	}

	if own != "" {
		parts = append(parts, own)
	}
	return strings.Join(parts, " ")
}

// nodeText returns the visible text under n, whitespace-collapsed.
// Script, style and comment content is excluded.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return text.CollapseSpace(sb.String())
}
