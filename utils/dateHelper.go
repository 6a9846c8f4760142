package utils

import (
	"strings"
	"time"
)

// PeriodMonthLayout is the canonical period key shape: first of month, ISO date.
const PeriodMonthLayout = "2006-01-02"

var periodInputLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01",
}

// NormalizePeriodMonth canonicalizes any date-bearing string to a
// "YYYY-MM-01" period key, the sole join key for all series merges.
// Unparseable input is returned unchanged; the caller is expected to
// treat a non-normalized key as a potential non-join and log it.
func NormalizePeriodMonth(value string) string {
	t, ok := ParsePeriodMonth(value)
	if !ok {
		return value
	}
	return t.Format(PeriodMonthLayout)
}

// ParsePeriodMonth parses a date-bearing string and truncates it to the
// first of its month (UTC).
func ParsePeriodMonth(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range periodInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateToMonth(t), true
		}
	}
	return time.Time{}, false
}

// TruncateToMonth forces a time to the first of its month at midnight UTC.
func TruncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
