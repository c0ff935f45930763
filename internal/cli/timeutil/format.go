// Package timeutil formats timestamps and durations for CLI output.
package timeutil

import (
	"time"
)

// LocalTimeFormat is used for timestamps shown to the user.
const LocalTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatTime renders t in local time. The zero time renders as "-".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(LocalTimeFormat)
}

// FormatLatency rounds a Go duration string for display, e.g.
// "1.234567ms" becomes "1.23ms". Unparseable input is returned unchanged.
func FormatLatency(s string) string {
	d, err := time.ParseDuration(s)
	if err != nil {
		return s
	}
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(10 * time.Microsecond).String()
	default:
		return d.Round(time.Microsecond).String()
	}
}
