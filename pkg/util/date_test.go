package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimePlainDate(t *testing.T) {
	got, ok := ParseTime("2025-03-01")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Year() != 2025 || got.Month() != time.March || got.Day() != 1 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		date string
		want int
	}{
		{"2025-02-10", 28},
		{"2024-02-10", 29},
		{"2025-04-01", 30},
		{"2025-12-31", 31},
	}
	for _, c := range cases {
		d, _ := time.Parse("2006-01-02", c.date)
		if got := DaysInMonth(d); got != c.want {
			t.Fatalf("DaysInMonth(%s) = %d, want %d", c.date, got, c.want)
		}
	}
}

func TestMonthWrap(t *testing.T) {
	if NextMonth(12) != 1 {
		t.Fatalf("December should wrap to January")
	}
	if PrevMonth(1) != 12 {
		t.Fatalf("January should wrap to December")
	}
	if NextMonth(6) != 7 || PrevMonth(6) != 5 {
		t.Fatalf("mid-year months should not wrap")
	}
}
