package domain

import (
	"fmt"
	"time"
)

// TimeLayout is the canonical timestamp form used in SQLite TEXT columns
// and CSV output.
const TimeLayout = "2006-01-02 15:04:05"

// timeLayouts are accepted on input, most common first. The loader writes
// second-precision timestamps; older exports carry minute precision or
// RFC 3339.
var timeLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseTime parses a timestamp in any accepted layout, always as UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTime renders a timestamp in the canonical layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
