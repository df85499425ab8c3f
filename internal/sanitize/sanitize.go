// Package sanitize escapes and strips markup in untrusted text before it is
// placed into a Telegram HTML message.
package sanitize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	entityPattern = regexp.MustCompile(`^&(?:#[0-9]{1,7}|#[xX][0-9a-fA-F]{1,6}|[a-zA-Z][a-zA-Z0-9]{1,31});`)
)

// TitleHashLength is the number of hex characters kept from the title digest.
const TitleHashLength = 16

// EscapeHTML escapes the characters Telegram's HTML parse mode interprets.
// Entities already present in s are left alone.
func EscapeHTML(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#x27;")
		case '&':
			if entityPattern.MatchString(s[i:]) {
				b.WriteByte(c)
			} else {
				b.WriteString("&amp;")
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// StripHTMLForPlainText turns an escaped HTML message into plain text.
// &amp; is decoded after tag removal so a doubly escaped payload never
// becomes a live tag.
func StripHTMLForPlainText(s string) string {
	s = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#x27;", "'",
	).Replace(s)
	s = stripTags(s)
	return strings.ReplaceAll(s, "&amp;", "&")
}

// stripTags removes tags until nothing matches, so fragments like
// "<scr<b>ipt>" cannot reassemble.
func stripTags(s string) string {
	for {
		next := tagPattern.ReplaceAllString(s, "")
		if next == s {
			return next
		}
		s = next
	}
}

// NormalizeWhitespace collapses every run of Unicode whitespace, NBSP
// included, into one space and trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeText strips tags then normalizes whitespace.
func NormalizeText(s string) string {
	return NormalizeWhitespace(stripTags(s))
}

// TitleHash derives a stable identifier from a title.
func TitleHash(title string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(NormalizeWhitespace(title))))
	return hex.EncodeToString(sum[:])[:TitleHashLength]
}
