package notifier

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"sjsage522/eventworker/internal/extractor"
	"sjsage522/eventworker/internal/sanitize"
)

// ParseModeHTML asks Telegram to render the HTML subset.
const ParseModeHTML = "HTML"

const truncationSuffix = "..."

// Limits bounds the length of an outgoing message. Lengths are counted in
// UTF-16 code units, the unit Telegram measures.
type Limits struct {
	MaxMessageLength   int
	SafeTruncateLength int
}

// DefaultLimits matches the Bot API sendMessage limit.
var DefaultLimits = Limits{
	MaxMessageLength:   4096,
	SafeTruncateLength: 4000,
}

// Message is a rendered Telegram message.
type Message struct {
	Text      string
	ParseMode string
	Truncated bool
}

// Failure is one extractor that failed during a run.
type Failure struct {
	Extractor string
	Message   string
}

// BuildEventMessage renders new events grouped by site in first-appearance
// order.
func BuildEventMessage(events []extractor.Event, limits Limits) Message {
	var order []string
	bySite := make(map[string][]extractor.Event)
	for _, ev := range events {
		if _, ok := bySite[ev.SiteID]; !ok {
			order = append(order, ev.SiteID)
		}
		bySite[ev.SiteID] = append(bySite[ev.SiteID], ev)
	}

	var b strings.Builder
	b.WriteString("🩸 새로운 이벤트 안내\n\n")

	for _, siteID := range order {
		siteEvents := bySite[siteID]
		name := siteEvents[0].SiteName
		if name == "" {
			name = siteID
		}
		fmt.Fprintf(&b, "<b>📍 %s</b>\n", sanitize.EscapeHTML(name))

		for i, ev := range siteEvents {
			fmt.Fprintf(&b, "%d. %s\n", i+1, sanitize.EscapeHTML(ev.Title))
			fmt.Fprintf(&b, "   📅 %s ~ %s\n", sanitize.EscapeHTML(ev.StartDate), sanitize.EscapeHTML(ev.EndDate))
			fmt.Fprintf(&b, "   🔗 %s\n\n", sanitize.EscapeHTML(ev.SourceURL))
		}
	}

	return fit(b.String(), limits)
}

// BuildAllFailedMessage renders the single alert sent when every extractor
// failed.
func BuildAllFailedMessage(failures []Failure, at time.Time, limits Limits) Message {
	var b strings.Builder
	b.WriteString("🚨 모든 사이트 수집 실패\n\n")
	for _, f := range failures {
		fmt.Fprintf(&b, "• <b>%s</b>: %s\n", sanitize.EscapeHTML(f.Extractor), sanitize.EscapeHTML(f.Message))
	}
	fmt.Fprintf(&b, "\n발생 시간: %s", formatTime(at))
	return fit(b.String(), limits)
}

// BuildErrorMessage renders a run error.
func BuildErrorMessage(errMsg string, at time.Time, limits Limits) Message {
	text := fmt.Sprintf("⚠️ 이벤트 수집 오류\n\n오류 메시지:\n%s\n\n발생 시간: %s",
		sanitize.EscapeHTML(errMsg), formatTime(at))
	return fit(text, limits)
}

func formatTime(at time.Time) string {
	return at.UTC().Format("2006-01-02T15:04:05.000Z")
}

// fit returns text as HTML when it is within the limit, otherwise a
// stripped plain-text prefix ending in "...".
func fit(text string, limits Limits) Message {
	if textLength(text) <= limits.MaxMessageLength {
		return Message{Text: text, ParseMode: ParseModeHTML}
	}
	plain := StripAndTruncate(text, limits.SafeTruncateLength)
	return Message{Text: plain, Truncated: true}
}

// StripAndTruncate strips markup from an escaped HTML message and cuts it
// to at most n UTF-16 units before appending "...".
func StripAndTruncate(text string, n int) string {
	plain := sanitize.StripHTMLForPlainText(text)
	return truncate(plain, n) + truncationSuffix
}

func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// truncate keeps whole runes while the prefix fits in n UTF-16 units.
func truncate(s string, n int) string {
	used := 0
	for i, r := range s {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}
		if used+w > n {
			return s[:i]
		}
		used += w
	}
	return s
}
