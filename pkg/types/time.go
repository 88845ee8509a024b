package types

import (
	"fmt"
	"strings"
	"time"
)

// wireLayouts are the ISO-8601 variants ParseTime accepts, in order of
// preference. The source mixes naive/aware UTC strings with varying
// fractional-second widths; this is the one place that tolerates all of
// them so the rest of the system can work with a single time.Time.
var wireLayouts = []string{
	"2006-01-02T15:04:05.999999Z",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// ParseTime parses a well-formed ISO-8601 UTC timestamp with an optional
// trailing "Z" and an optional fractional-second component of any width.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("types: empty timestamp")
	}
	if !strings.HasSuffix(s, "Z") && !strings.Contains(s, "+") {
		s += "Z"
	}
	var lastErr error
	for _, layout := range wireLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("types: unparseable timestamp %q: %w", s, lastErr)
}

// FormatTime renders the canonical wire representation: ISO-8601 with a
// trailing Z and up to 6 fractional digits, trimming trailing zeros.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999Z")
}
