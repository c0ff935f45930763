package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "-", FormatTime(time.Time{}))

	ts := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, ts.Local().Format(LocalTimeFormat), FormatTime(ts))
}

func TestFormatLatency(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.234567ms", "1.23ms"},
		{"2.3456789s", "2.35s"},
		{"15.4µs", "15µs"},
		{"812ns", "1µs"},
		{"garbage", "garbage"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatLatency(tt.in), tt.in)
	}
}
