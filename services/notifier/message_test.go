package notifier

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sjsage522/eventworker/internal/extractor"
)

func event(site, name, id, title string) extractor.Event {
	return extractor.Event{
		SiteID:    site,
		SiteName:  name,
		EventID:   id,
		Title:     title,
		StartDate: "2025.06.01",
		EndDate:   "2025.06.30",
		SourceURL: "https://example.kr/" + site + "/" + id,
	}
}

func TestBuildEventMessage(t *testing.T) {
	events := []extractor.Event{
		event("ktcu", "한국교직원공제회", "a1", "여름 이벤트"),
		event("bloodinfo", "혈액정보", "501", "헌혈 캠페인"),
		event("ktcu", "한국교직원공제회", "a2", "가을 이벤트"),
	}

	msg := BuildEventMessage(events, DefaultLimits)

	want := "🩸 새로운 이벤트 안내\n\n" +
		"<b>📍 한국교직원공제회</b>\n" +
		"1. 여름 이벤트\n   📅 2025.06.01 ~ 2025.06.30\n   🔗 https://example.kr/ktcu/a1\n\n" +
		"2. 가을 이벤트\n   📅 2025.06.01 ~ 2025.06.30\n   🔗 https://example.kr/ktcu/a2\n\n" +
		"<b>📍 혈액정보</b>\n" +
		"1. 헌혈 캠페인\n   📅 2025.06.01 ~ 2025.06.30\n   🔗 https://example.kr/bloodinfo/501\n\n"

	assert.Equal(t, want, msg.Text)
	assert.Equal(t, ParseModeHTML, msg.ParseMode)
	assert.False(t, msg.Truncated)
}

func TestBuildEventMessageEscapesFields(t *testing.T) {
	ev := event("sjac", "세종예술의전당", "1", `<script>alert("x")</script>`)
	ev.SourceURL = "https://www.sjac.or.kr/read?a=1&performanceNo=1"

	msg := BuildEventMessage([]extractor.Event{ev}, DefaultLimits)

	assert.Contains(t, msg.Text, "1. &lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt;\n")
	assert.Contains(t, msg.Text, "https://www.sjac.or.kr/read?a=1&amp;performanceNo=1")
	assert.NotContains(t, msg.Text, "<script>")
}

func TestBuildEventMessageTruncates(t *testing.T) {
	var events []extractor.Event
	for i := 0; i < 60; i++ {
		events = append(events, event("bloodinfo", "혈액정보", fmt.Sprint(i), strings.Repeat("긴 제목 ", 10)))
	}
	events = append(events, event("sjac", "세종예술의전당", "x", "&amp;lt;script&amp;gt;"))
	// put the hostile title first so it survives truncation
	events[0], events[len(events)-1] = events[len(events)-1], events[0]

	msg := BuildEventMessage(events, DefaultLimits)

	assert.True(t, msg.Truncated)
	assert.Empty(t, msg.ParseMode)
	assert.True(t, strings.HasSuffix(msg.Text, "..."))
	assert.LessOrEqual(t, textLength(msg.Text), 4096)
	assert.Equal(t, 4003, textLength(msg.Text))
	assert.NotContains(t, msg.Text, "<b>")
	assert.Contains(t, msg.Text, "&lt;script&gt;")
	assert.NotContains(t, msg.Text, "<script>")
}

func TestFitBoundary(t *testing.T) {
	exact := strings.Repeat("a", 4096)
	msg := fit(exact, DefaultLimits)
	assert.False(t, msg.Truncated)
	assert.Equal(t, exact, msg.Text)

	msg = fit(exact+"a", DefaultLimits)
	assert.True(t, msg.Truncated)
	assert.Equal(t, strings.Repeat("a", 4000)+"...", msg.Text)
}

func TestFitCountsUTF16Units(t *testing.T) {
	// each drop of blood is a surrogate pair
	msg := fit(strings.Repeat("🩸", 2049), DefaultLimits)
	assert.True(t, msg.Truncated)
	assert.Equal(t, strings.Repeat("🩸", 2000)+"...", msg.Text)

	msg = fit(strings.Repeat("🩸", 2048), DefaultLimits)
	assert.False(t, msg.Truncated)
}

func TestTruncateKeepsWholeRunes(t *testing.T) {
	assert.Equal(t, "ab", truncate("ab🩸", 3))
	assert.Equal(t, "ab🩸", truncate("ab🩸", 4))
	assert.Equal(t, "헌혈", truncate("헌혈", 10))
}

func TestBuildErrorMessage(t *testing.T) {
	at := time.Date(2025, 6, 15, 1, 2, 3, 456000000, time.UTC)
	msg := BuildErrorMessage("store write <failed> & more", at, DefaultLimits)

	assert.Equal(t, "⚠️ 이벤트 수집 오류\n\n오류 메시지:\nstore write &lt;failed&gt; &amp; more\n\n발생 시간: 2025-06-15T01:02:03.456Z", msg.Text)
	assert.Equal(t, ParseModeHTML, msg.ParseMode)
}

func TestBuildAllFailedMessage(t *testing.T) {
	at := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	msg := BuildAllFailedMessage([]Failure{
		{Extractor: "혈액정보", Message: "[fetch] bloodinfo: HTTP 503"},
		{Extractor: "세종예술의전당", Message: "<html> parse"},
	}, at, DefaultLimits)

	assert.True(t, strings.HasPrefix(msg.Text, "🚨 모든 사이트 수집 실패\n\n"))
	assert.Contains(t, msg.Text, "• <b>혈액정보</b>: [fetch] bloodinfo: HTTP 503\n")
	assert.Contains(t, msg.Text, "• <b>세종예술의전당</b>: &lt;html&gt; parse\n")
	assert.True(t, strings.HasSuffix(msg.Text, "발생 시간: 2025-06-15T00:00:00.000Z"))
	assert.Equal(t, ParseModeHTML, msg.ParseMode)
}
