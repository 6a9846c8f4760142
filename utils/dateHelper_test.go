package utils_test

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/utils"
)

func TestNormalizePeriodMonth_AcceptedLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2025-03-01", "2025-03-01"},
		{"2025-03-17", "2025-03-01"},
		{"2025-03-17T10:30:00Z", "2025-03-01"},
		{"2025-03-17T10:30:00", "2025-03-01"},
		{"2025-03-17 10:30:00", "2025-03-01"},
		{"2025-03", "2025-03-01"},
		{"2025-12-31", "2025-12-01"},
	}
	for _, tc := range cases {
		if got := utils.NormalizePeriodMonth(tc.in); got != tc.want {
			t.Errorf("NormalizePeriodMonth(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePeriodMonth_UnparseableInputPassesThrough(t *testing.T) {
	for _, in := range []string{"", "not-a-date", "13/31/2025", "Q1-2025"} {
		if got := utils.NormalizePeriodMonth(in); got != in {
			t.Errorf("NormalizePeriodMonth(%q) = %q, want input unchanged", in, got)
		}
	}
}

func TestNormalizePeriodMonth_Idempotent(t *testing.T) {
	once := utils.NormalizePeriodMonth("2025-06-23")
	twice := utils.NormalizePeriodMonth(once)
	if once != twice {
		t.Errorf("normalizing twice changed the key: %q -> %q", once, twice)
	}
}

func TestParsePeriodMonth(t *testing.T) {
	got, ok := utils.ParsePeriodMonth("2025-07-19")
	if !ok {
		t.Fatal("expected 2025-07-19 to parse")
	}
	want := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParsePeriodMonth = %v, want %v", got, want)
	}
	if _, ok := utils.ParsePeriodMonth("nope"); ok {
		t.Error("expected unparseable input to report !ok")
	}
}

func TestTruncateToMonth(t *testing.T) {
	in := time.Date(2025, 11, 28, 13, 45, 0, 0, time.UTC)
	want := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	if got := utils.TruncateToMonth(in); !got.Equal(want) {
		t.Errorf("TruncateToMonth = %v, want %v", got, want)
	}
}
