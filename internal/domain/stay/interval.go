package stay

// Interval is a closed range of calendar days: both From and To are occupied.
type Interval struct {
	From Date
	To   Date
}

// BlockedInterval projects a booking's half-open [dateFrom, dateTo) onto the
// closed days it occupies. The checkout day itself is free for a new guest's
// check-in, so it is excluded.
func BlockedInterval(dateFrom, dateTo Date) Interval {
	return Interval{From: dateFrom, To: dateTo.AddDays(-1)}
}

// Overlaps reports whether the two closed intervals intersect. With inclusive
// set, intervals sharing only a boundary day count as overlapping.
func (iv Interval) Overlaps(o Interval, inclusive bool) bool {
	if inclusive {
		return !iv.From.After(o.To) && !o.From.After(iv.To)
	}
	return iv.From.Before(o.To) && o.From.Before(iv.To)
}

// Contains reports whether d falls inside the closed interval.
func (iv Interval) Contains(d Date) bool {
	return !d.Before(iv.From) && !d.After(iv.To)
}
