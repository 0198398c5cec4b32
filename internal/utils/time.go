package utils

import (
	"fmt"
	"time"
)

// timestampFormats are the accepted wire formats for report timestamps.
// RFC3339 covers both the trailing "Z" and explicit "+00:00" offset forms.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an ISO-8601 timestamp string and normalizes it to
// UTC. Values without a zone offset are assumed to be UTC; values with a
// non-UTC offset are converted, never rejected.
func ParseTimestamp(s string) (time.Time, error) {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", s)
}
