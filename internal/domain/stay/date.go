package stay

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar day with no time-of-day significance. The zero value
// means "no date chosen".
type Date struct {
	t time.Time // UTC midnight
}

const dayLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts an ISO-8601 date or date-time string and truncates it to
// calendar-day precision. Time-of-day and zone offset are discarded.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) >= len(dayLayout) {
		if t, err := time.Parse(dayLayout, s[:len(dayLayout)]); err == nil {
			return Date{t: t}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
}

// Today truncates a clock reading to the calendar day in its own location.
func Today(now time.Time) Date {
	y, m, d := now.Date()
	return NewDate(y, m, d)
}

func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Before(o Date) bool    { return d.t.Before(o.t) }
func (d Date) After(o Date) bool     { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool     { return d.t.Equal(o.t) }
func (d Date) AddDays(n int) Date    { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }

func (d Date) Date() (int, time.Month, int) { return d.t.Date() }

// DaysUntil returns the number of whole days from d to o. Negative when o is
// earlier than d.
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t) / (24 * time.Hour))
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dayLayout)
}
