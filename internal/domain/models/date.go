package models

import (
	"encoding/json"
	"fmt"
	"time"

	"AgriPrice/pkg/util"
)

// Date is a calendar day in UTC. The zero value means "unset".
type Date struct {
	time.Time
}

// NewDate builds a Date from its components.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date{util.Day(t)}
}

// ParseDate parses YYYY-MM-DD (and the other layouts util.ParseDay accepts).
func ParseDate(s string) (Date, error) {
	t, ok := util.ParseDay(s)
	if !ok {
		return Date{}, fmt.Errorf("parse date %q", s)
	}
	return DateOf(t), nil
}

func (d Date) AddDays(n int) Date        { return Date{d.Time.AddDate(0, 0, n)} }
func (d Date) Before(o Date) bool        { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool         { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool         { return d.Time.Equal(o.Time) }
func (d Date) WeekStart() Date           { return Date{util.WeekStart(d.Time)} }
func (d Date) DaysUntil(o Date) int      { return util.DaysBetween(d.Time, o.Time) }
func (d Date) ShiftMonths(n int) Date    { return Date{util.ShiftMonths(d.Time, n)} }
func (d Date) Within(from, to Date) bool { return !d.Before(from) && !d.After(to) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return util.FormatDay(d.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MinDate returns the earlier of a and b.
func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}
