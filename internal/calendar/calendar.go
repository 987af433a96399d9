// Package calendar implements the availability calendar: a disabled-day
// predicate built from existing bookings, an interactive range selection
// state machine, and month grids for rendering. It holds no booking data of
// its own and never touches the network.
package calendar

import (
	"github.com/example/staybook/internal/domain/stay"
)

// State of an in-progress range selection.
type State int

const (
	// Empty: no day chosen.
	Empty State = iota
	// Partial: only the check-in day chosen.
	Partial
	// Valid: a complete, conflict-free range was chosen and propagated.
	Valid
	// Conflict: the completed range intersected a disabled interval; the
	// selection was rejected and reset.
	Conflict
)

// Picker is a controlled range selector over a venue's availability. Callers
// supply "today" and the blocked intervals; the picker owns only the
// transient selection.
type Picker struct {
	today   stay.Date
	blocked []stay.Interval

	state State
	from  stay.Date
	rng   stay.Range // set only in state Valid
}

func NewPicker(today stay.Date, blocked []stay.Interval) *Picker {
	return &Picker{today: today, blocked: blocked}
}

// Disabled merges the two disabling rules into one predicate: any day before
// today is permanently disabled, and any day inside a booking's occupied
// interval (checkout day excluded) is disabled.
func (p *Picker) Disabled(d stay.Date) bool {
	if d.Before(p.today) {
		return true
	}
	for _, iv := range p.blocked {
		if iv.Contains(d) {
			return true
		}
	}
	return false
}

// Pick advances the selection with a chosen day and returns the resulting
// state. Picking a disabled day is refused without losing progress. Picking
// the anchor day again clears the selection. Completing a range that
// inclusively overlaps a disabled interval rejects the whole selection back
// to Empty and reports Conflict.
func (p *Picker) Pick(d stay.Date) State {
	if p.Disabled(d) {
		return p.state
	}

	switch p.state {
	case Empty, Valid, Conflict:
		// A pick after a settled selection starts over.
		p.from = d
		p.rng = stay.Range{}
		p.state = Partial
		return Partial

	case Partial:
		if d.Equal(p.from) {
			p.Clear()
			return Empty
		}
		from, to := p.from, d
		if to.Before(from) {
			from, to = to, from
		}
		cand := stay.Range{From: from, To: to}
		if p.conflicts(cand) {
			p.Clear()
			p.state = Conflict
			return Conflict
		}
		p.rng = cand
		p.state = Valid
		return Valid
	}
	return p.state
}

func (p *Picker) conflicts(r stay.Range) bool {
	occ := r.Occupied()
	for _, iv := range p.blocked {
		if occ.Overlaps(iv, true) {
			return true
		}
	}
	return false
}

// Clear resets the selection to Empty.
func (p *Picker) Clear() {
	p.state = Empty
	p.from = stay.Date{}
	p.rng = stay.Range{}
}

func (p *Picker) State() State { return p.state }

// Selection returns the chosen range; ok is false unless the selection is in
// state Valid. Consumers see a rejected selection as no selection at all.
func (p *Picker) Selection() (stay.Range, bool) {
	if p.state != Valid {
		return stay.Range{}, false
	}
	return p.rng, true
}
