package notify

import (
	"html"
	"strings"

	"github.com/roshhellwett/TeleAcademicBot/internal/domain/entity"
	"github.com/roshhellwett/TeleAcademicBot/internal/utils/text"
)

// MaxMessageLength is Telegram's sendMessage text limit in characters.
const MaxMessageLength = 4096

// FormatNotice renders n as a Telegram HTML message.
//
// Layout:
//
//	📢 <b>MAKAUT WB</b>
//	<escaped title>
//	📅 06 Jan 2026
//	🔗 <a href="...">Open notice</a>
//	📄 <a href="...">Download PDF</a>   (only when DocumentURL is set)
//
// User-controlled text is HTML-escaped. If the title pushes the message past
// MaxMessageLength, the title is truncated so the links survive.
func FormatNotice(n *entity.Notice) string {
	head := "📢 <b>" + html.EscapeString(n.Source) + "</b>\n"

	var tail strings.Builder
	tail.WriteString("\n📅 " + n.PublishedDate.Format("02 Jan 2006") + "\n")
	tail.WriteString(`🔗 <a href="` + html.EscapeString(n.SourceURL) + `">Open notice</a>`)
	if n.DocumentURL != "" && n.DocumentURL != n.SourceURL {
		tail.WriteString("\n📄 <a href=\"" + html.EscapeString(n.DocumentURL) + "\">Download PDF</a>")
	}

	budget := MaxMessageLength - text.CountRunes(head) - text.CountRunes(tail.String())
	title := n.Title
	if budget < text.CountRunes(html.EscapeString(title)) {
		title = fitEscaped(title, budget)
	}

	msg := head + html.EscapeString(title) + tail.String()
	// still too long only when the URLs themselves are huge
	if text.CountRunes(msg) > MaxMessageLength {
		msg = string([]rune(msg)[:MaxMessageLength])
	}
	return msg
}

// fitEscaped shortens raw so that its escaped form fits in budget runes.
func fitEscaped(raw string, budget int) string {
	// escaping never shrinks text, so nothing longer than budget can fit
	n := text.CountRunes(raw)
	if n > budget {
		n = budget
	}
	for ; n > 0; n-- {
		candidate := text.Truncate(raw, n)
		if text.CountRunes(html.EscapeString(candidate)) <= budget {
			return candidate
		}
	}
	return ""
}
