package stay

// Range is a requested stay: From is the check-in day, To the checkout day.
// The checkout day itself is not occupied.
type Range struct {
	From Date
	To   Date
}

// Complete reports whether both ends of the range have been chosen.
func (r Range) Complete() bool { return !r.From.IsZero() && !r.To.IsZero() }

// Nights returns the number of nights in the stay, zero for incomplete or
// inverted ranges.
func (r Range) Nights() int {
	if !r.Complete() {
		return 0
	}
	n := r.From.DaysUntil(r.To)
	if n < 0 {
		return 0
	}
	return n
}

// Occupied is the closed interval of days the stay actually occupies,
// i.e. [From, To-1].
func (r Range) Occupied() Interval {
	return Interval{From: r.From, To: r.To.AddDays(-1)}
}

// Reason explains why a candidate stay is not bookable.
type Reason string

const (
	// ReasonNone means the candidate is bookable.
	ReasonNone Reason = ""
	// ReasonIncomplete is the neutral in-progress state: one or both dates
	// have not been chosen yet.
	ReasonIncomplete Reason = "incomplete_range"
	// ReasonZeroNights marks a zero-length stay (from == to) or an inverted
	// range; always invalid.
	ReasonZeroNights Reason = "zero_length_stay"
	// ReasonCapacity marks a guest count outside [1, maxGuests].
	ReasonCapacity Reason = "guests_exceed_capacity"
	// ReasonPastDate marks a stay starting before today.
	ReasonPastDate Reason = "start_in_past"
	// ReasonConflict marks a range that intersects an existing booking.
	ReasonConflict Reason = "date_conflict"
)

// Verdict is the result of an availability check.
type Verdict struct {
	OK     bool
	Reason Reason
}

// Check decides whether a candidate stay is bookable against today's date, a
// venue's capacity, and its existing blocked intervals. Pure: identical
// inputs always yield identical verdicts.
//
// The candidate's own checkout day is excluded before overlap testing, so a
// new stay starting on an existing booking's checkout day never conflicts.
// A stay may start today but not earlier.
func Check(today Date, maxGuests int, blocked []Interval, cand Range, guests int) Verdict {
	if !cand.Complete() {
		return Verdict{Reason: ReasonIncomplete}
	}
	if guests < 1 || guests > maxGuests {
		return Verdict{Reason: ReasonCapacity}
	}
	if !cand.From.Before(cand.To) {
		return Verdict{Reason: ReasonZeroNights}
	}
	if cand.From.Before(today) {
		return Verdict{Reason: ReasonPastDate}
	}
	occ := cand.Occupied()
	for _, iv := range blocked {
		if occ.Overlaps(iv, true) {
			return Verdict{Reason: ReasonConflict}
		}
	}
	return Verdict{OK: true}
}
