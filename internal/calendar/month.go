package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/staybook/internal/domain/stay"
)

// Day is one cell in a month grid.
type Day struct {
	Date     stay.Date
	InMonth  bool
	Disabled bool
	Selected bool
}

// Week is a Monday-first row of seven days.
type Week [7]Day

// Month is a rendered month grid.
type Month struct {
	Year  int
	Month time.Month
	Weeks []Week
}

// MonthGrid lays out a month as Monday-first weeks, padding the edges with
// out-of-month days. disabled may be nil; sel marks the days of a chosen
// stay (checkout day excluded).
func MonthGrid(year int, month time.Month, disabled func(stay.Date) bool, sel stay.Range) Month {
	first := stay.NewDate(year, month, 1)

	// Walk back to the Monday on or before the 1st.
	cur := first
	for cur.Weekday() != time.Monday {
		cur = cur.AddDays(-1)
	}

	var selected stay.Interval
	haveSel := sel.Complete()
	if haveSel {
		selected = sel.Occupied()
	}

	m := Month{Year: year, Month: month}
	for {
		var w Week
		for i := 0; i < 7; i++ {
			_, mm, _ := cur.Date()
			d := Day{Date: cur, InMonth: mm == month}
			if disabled != nil && disabled(cur) {
				d.Disabled = true
			}
			if haveSel && selected.Contains(cur) {
				d.Selected = true
			}
			w[i] = d
			cur = cur.AddDays(1)
		}
		m.Weeks = append(m.Weeks, w)
		_, mm, _ := cur.Date()
		if mm != month || len(m.Weeks) > 6 {
			break
		}
	}
	return m
}

// Format renders the month as text for terminal output. Disabled days are
// bracketed, selected days starred.
func (m Month) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", m.Month, m.Year)
	b.WriteString(" Mo  Tu  We  Th  Fr  Sa  Su\n")
	for _, w := range m.Weeks {
		for _, d := range w {
			if !d.InMonth {
				b.WriteString("    ")
				continue
			}
			_, _, day := d.Date.Date()
			switch {
			case d.Disabled:
				fmt.Fprintf(&b, "[%2d]", day)
			case d.Selected:
				fmt.Fprintf(&b, "*%2d ", day)
			default:
				fmt.Fprintf(&b, " %2d ", day)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
