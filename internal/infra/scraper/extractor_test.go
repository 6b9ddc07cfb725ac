package scraper_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/roshhellwett/TeleAcademicBot/internal/infra/scraper"
	"github.com/roshhellwett/TeleAcademicBot/internal/usecase/ingest"
)

const base = "https://makautwb.ac.in/page.php?id=340"

func extract(t *testing.T, page string) []ingest.Candidate {
	t.Helper()
	e := scraper.NewNoticeExtractor(scraper.DefaultExtractorConfig())
	got, err := e.Extract([]byte(page), base)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	return got
}

func TestExtract_SoleLinkUsesParentText(t *testing.T) {
	page := `<html><body><ul>
<li>Date: 06-01-2026 <a href="/upload/notice1.pdf">Examination schedule</a> (new)</li>
</ul></body></html>`

	got := extract(t, page)

	want := []ingest.Candidate{{
		Text: "Date: 06-01-2026 Examination schedule (new)",
		URL:  "https://makautwb.ac.in/upload/notice1.pdf",
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_SiblingWalkForSharedParent(t *testing.T) {
	page := `<div>16.01.2026 <b>NEW</b> <a href="a.pdf">Result notice</a><br>
<!-- 01-01-2019 --> Tender <a href="b.pdf">Supply of chairs</a></div>`

	got := extract(t, page)

	// Elements (including the first <a>) and the comment are stepped over;
	// only sibling text nodes contribute.
	want := []ingest.Candidate{
		{Text: "16.01.2026 Result notice", URL: "https://makautwb.ac.in/a.pdf"},
		{Text: "16.01.2026 Tender Supply of chairs", URL: "https://makautwb.ac.in/b.pdf"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_LongParentFallsBackToSiblings(t *testing.T) {
	long := strings.Repeat("filler text ", 30)
	page := `<p>` + long + `<a href="x.pdf">Admit card</a></p>`

	got := extract(t, page)

	if len(got) != 1 {
		t.Fatalf("got %d candidates", len(got))
	}
	// The long sibling text node is >= 100 runes and is ignored.
	if got[0].Text != "Admit card" {
		t.Errorf("Text = %q, want %q", got[0].Text, "Admit card")
	}
}

func TestExtract_SiblingLimitsApply(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<div>")
	for i := 0; i < 12; i++ {
		sb.WriteString("<span>x</span>t")
	}
	sb.WriteString(`<a href="/n">Link</a><a href="/m">Other</a></div>`)

	got := extract(t, sb.String())

	// MaxSiblings=10 nodes: 5 text nodes and 5 spans before the first link.
	if got[0].Text != "t t t t t Link" {
		t.Errorf("Text = %q", got[0].Text)
	}
}

func TestExtract_DocumentOrderAndResolution(t *testing.T) {
	page := `<table>
<tr><td><a href="https://other.example/one.pdf">One notice</a></td></tr>
<tr><td><a href="two.pdf">Two notice</a></td></tr>
<tr><td><a href="#top">Top</a></td></tr>
<tr><td><a href="/three.pdf">Three notice</a></td></tr>
</table>`

	got := extract(t, page)

	var urls []string
	for _, c := range got {
		urls = append(urls, c.URL)
	}
	want := []string{
		"https://other.example/one.pdf",
		"https://makautwb.ac.in/two.pdf",
		"https://makautwb.ac.in/page.php?id=340#top",
		"https://makautwb.ac.in/three.pdf",
	}
	if diff := cmp.Diff(want, urls); diff != "" {
		t.Errorf("URLs mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_OneCandidatePerHyperlink(t *testing.T) {
	page := `<ul>
<li><a href="#">Back</a></li>
<li><a href="">Reload</a></li>
<li><a href="http://%zz/bad">Broken link</a></li>
<li><a href="/ok.pdf">Exam notice</a></li>
</ul>`

	got := extract(t, page)

	want := []ingest.Candidate{
		{Text: "Back", URL: base},
		{Text: "Reload", URL: base},
		{Text: "Broken link", URL: "http://%zz/bad"},
		{Text: "Exam notice", URL: "https://makautwb.ac.in/ok.pdf"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_IgnoresScriptText(t *testing.T) {
	got := extract(t, `<li><script>var d="01-01-2026"</script><a href="/a">Holiday list</a></li>`)

	if got[0].Text != "Holiday list" {
		t.Errorf("Text = %q", got[0].Text)
	}
}

func TestExtract_Malformed(t *testing.T) {
	e := scraper.NewNoticeExtractor(scraper.DefaultExtractorConfig())

	tests := []struct {
		name    string
		page    string
		baseURL string
	}{
		{"empty page", "   ", base},
		{"bad base URL", "<a href='/x'>x</a>", "http://[::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract([]byte(tt.page), tt.baseURL)
			var pe *ingest.ParseError
			if !errors.As(err, &pe) || pe.Kind != ingest.MalformedDocument {
				t.Errorf("expected MalformedDocument, got %v", err)
			}
		})
	}
}
