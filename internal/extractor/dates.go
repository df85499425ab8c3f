package extractor

import (
	"regexp"
	"time"
)

// DateLayout is the display format shared by every extractor.
const DateLayout = "2006.01.02"

var loosePattern = regexp.MustCompile(`(\d{4})[.-](\d{2})[.-](\d{2})`)

func formatDate(year, month, day string) string {
	return year + "." + month + "." + day
}

// normalizeDate finds the first YYYY-MM-DD or YYYY.MM.DD date in s.
func normalizeDate(s string) (string, bool) {
	m := loosePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return formatDate(m[1], m[2], m[3]), true
}

// endedBefore reports whether end lies strictly before the calendar day of
// now in loc. Unparseable dates count as ongoing.
func endedBefore(end string, now time.Time, loc *time.Location) bool {
	endDay, err := time.ParseInLocation(DateLayout, end, loc)
	if err != nil {
		return false
	}
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return endDay.Before(today)
}
