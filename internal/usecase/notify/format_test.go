package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	"github.com/roshhellwett/TeleAcademicBot/internal/utils/text"
)

func TestFormatNotice(t *testing.T) {
	n, err := entity.NewNotice("Exam <Schedule> & Rules", "MAKAUT WB",
		"https://makautwb.ac.in/upload/exam.pdf",
		time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), time.Now())
	require.NoError(t, err)

	got := FormatNotice(n)

	want := "📢 <b>MAKAUT WB</b>\n" +
		"Exam &lt;Schedule&gt; &amp; Rules\n" +
		"📅 06 Jan 2026\n" +
		`🔗 <a href="https://makautwb.ac.in/upload/exam.pdf">Open notice</a>`
	assert.Equal(t, want, got)
}

func TestFormatNotice_SeparateDocumentLink(t *testing.T) {
	n := &entity.Notice{
		Title:         "Tender",
		Source:        "MAKAUT WB",
		SourceURL:     "https://makautwb.ac.in/page.php?id=210",
		DocumentURL:   "https://makautwb.ac.in/t.pdf",
		PublishedDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	got := FormatNotice(n)

	assert.Contains(t, got, `📄 <a href="https://makautwb.ac.in/t.pdf">Download PDF</a>`)
}

func TestFormatNotice_TruncatesLongTitle(t *testing.T) {
	n := &entity.Notice{
		Title:         strings.Repeat("পরীক্ষা & ", 1000),
		Source:        "MAKAUT EXAM",
		SourceURL:     "https://www.makautexam.net/announcement.html",
		PublishedDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	got := FormatNotice(n)

	assert.LessOrEqual(t, text.CountRunes(got), MaxMessageLength)
	assert.True(t, strings.HasSuffix(got, `">Open notice</a>`), "links must survive truncation")
	assert.Contains(t, got, "...")
}
