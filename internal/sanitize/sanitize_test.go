package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "헌혈 이벤트", "헌혈 이벤트"},
		{"tags", "<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"quotes", `say "hi" it's`, "say &quot;hi&quot; it&#x27;s"},
		{"bare ampersand", "A & B", "A &amp; B"},
		{"existing entity", "A &amp; B", "A &amp; B"},
		{"numeric entity", "&#39;x&#x27;", "&#39;x&#x27;"},
		{"ampersand without semicolon", "AT&T", "AT&amp;T"},
		{"url query", "https://x.kr/a?b=1&c=2", "https://x.kr/a?b=1&amp;c=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeHTML(tt.in))
		})
	}
}

func TestEscapeHTMLNoLiveMarkup(t *testing.T) {
	out := EscapeHTML(`<b onclick="x">'bold'</b>`)
	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")
	assert.NotContains(t, out, `"`)
	assert.NotContains(t, out, "'")
}

func TestStripHTMLForPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold header", "<b>📍 혈액정보</b>\n1. title", "📍 혈액정보\n1. title"},
		{"escaped text survives", "&lt;3 &quot;x&quot; it&#x27;s", "<3 \"x\" it's"},
		{"escaped tag removed", "a &lt;script&gt;b", "a b"},
		{"double escaped decoded once", "&amp;lt;script&amp;gt;", "&lt;script&gt;"},
		{"nested fragments", "<scr<b>ipt>x", "ipt>x"},
		{"ampersand", "A &amp; B", "A & B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTMLForPlainText(tt.in))
		})
	}
}

func TestStripHTMLForPlainTextOfEscapedTitle(t *testing.T) {
	out := StripHTMLForPlainText(EscapeHTML("&amp;lt;script&amp;gt;"))
	assert.Equal(t, "&lt;script&gt;", out)
	assert.NotContains(t, out, "<script>")
}

func TestStripTagsIsIdempotent(t *testing.T) {
	in := "<<b>i>text</<b>i> <a href='x'>link</a>"
	once := stripTags(in)
	assert.Equal(t, once, stripTags(once))
	assert.NotRegexp(t, `<[^>]+>`, once)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\t\nb  c  "))
	assert.Equal(t, "", NormalizeWhitespace("  \n"))
	assert.Equal(t, "2025-01-01 ~ 2025-01-31", NormalizeWhitespace("2025-01-01 ~ 2025-01-31"))
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "봄맞이 이벤트 안내", NormalizeText("<span>봄맞이</span>\n  이벤트 <br/>안내"))
}

func TestTitleHash(t *testing.T) {
	h := TitleHash("Spring Event")
	assert.Len(t, h, TitleHashLength)
	assert.Regexp(t, `^[0-9a-f]{16}$`, h)

	// case and incidental whitespace do not change the id
	assert.Equal(t, h, TitleHash("  spring  EVENT "))
	assert.Equal(t, h, TitleHash("SPRING\n\tEVENT"))
	assert.NotEqual(t, h, TitleHash("Spring Events"))
}

func TestTitleHashStableAcrossCalls(t *testing.T) {
	title := strings.Repeat("헌혈 ", 20)
	first := TitleHash(title)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, TitleHash(title))
	}
}
