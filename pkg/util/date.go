package util

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b (b - a).
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// WeekStart returns the Monday of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	d := Day(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeeksSpanned counts the ISO weeks touched by [from, to].
func WeeksSpanned(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return DaysBetween(WeekStart(from), WeekStart(to))/7 + 1
}

// MonthEnd returns the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// ShiftMonths moves t by n calendar months keeping the day-of-month,
// clamped to the end of the target month (Mar 31 - 1 month = Feb 28/29).
func ShiftMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := MonthEnd(first).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// DecadeDay maps a decade-of-month marker to its representative day:
// 상순/early -> 5, 중순/mid -> 15, 하순/late -> 25.
func DecadeDay(marker string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(marker)) {
	case "상순", "early", "초순":
		return 5, true
	case "중순", "mid", "middle":
		return 15, true
	case "하순", "late":
		return 25, true
	}
	return 0, false
}

// ParsePeriod parses the market report period format "201801상순" (YYYYMM + decade marker).
// A bare YYYYMM maps to the first day of the month.
func ParsePeriod(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(s[4:6])
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	day := 1
	if rest := strings.TrimSpace(s[6:]); rest != "" {
		d, ok := DecadeDay(rest)
		if !ok {
			return time.Time{}, false
		}
		day = d
	}
	return time.Date(y, time.Month(m), day, 0, 0, 0, 0, time.UTC), true
}

// ParseDay accepts YYYY-MM-DD, YYYYMMDD, YYYY/MM/DD, YYYY.MM.DD and RFC3339 timestamps.
func ParseDay(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{DateLayout, "20060102", "2006/01/02", "2006.01.02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	return time.Time{}, false
}

// FormatDay renders t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}
