package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2025-03-01", "2025.03.01", true},
		{"2025.03.01 10:00", "2025.03.01", true},
		{"티켓오픈 2025-12-24(수)", "2025.12.24", true},
		{"2025/03/01", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := normalizeDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEndedBefore(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	// 00:30 KST on 2025-06-15 is still 2025-06-14 in UTC
	now := time.Date(2025, 6, 14, 15, 30, 0, 0, time.UTC)

	assert.True(t, endedBefore("2025.06.14", now, seoul), "yesterday")
	assert.False(t, endedBefore("2025.06.15", now, seoul), "today")
	assert.False(t, endedBefore("2025.06.16", now, seoul), "tomorrow")
	assert.False(t, endedBefore("not a date", now, seoul), "unparseable")
}
