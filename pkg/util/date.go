package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, a plain date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// DaysInMonth returns the calendar length of the month containing t.
func DaysInMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// WeekOfYear returns the ISO week number of t.
func WeekOfYear(t time.Time) int {
	_, wk := t.ISOWeek()
	return wk
}

// NextMonth wraps December to January.
func NextMonth(m int) int {
	return m%12 + 1
}

// PrevMonth wraps January to December.
func PrevMonth(m int) int {
	if m == 1 {
		return 12
	}
	return m - 1
}
