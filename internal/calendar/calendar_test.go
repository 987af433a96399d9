package calendar

import (
	"testing"
	"time"

	"github.com/example/staybook/internal/domain/stay"
)

func date(y int, m time.Month, d int) stay.Date { return stay.NewDate(y, m, d) }

func testPicker() *Picker {
	today := date(2024, time.June, 1)
	blocked := []stay.Interval{
		// booking [2024-06-10, 2024-06-15): June 10-14 occupied.
		stay.BlockedInterval(date(2024, time.June, 10), date(2024, time.June, 15)),
	}
	return NewPicker(today, blocked)
}

func TestDisabled(t *testing.T) {
	p := testPicker()

	t.Run("PastDays", func(t *testing.T) {
		if !p.Disabled(date(2024, time.May, 31)) {
			t.Error("day before today should be disabled")
		}
		if p.Disabled(date(2024, time.June, 1)) {
			t.Error("today should be selectable")
		}
	})

	t.Run("BookedDays", func(t *testing.T) {
		for day := 10; day <= 14; day++ {
			if !p.Disabled(date(2024, time.June, day)) {
				t.Errorf("June %d is booked, should be disabled", day)
			}
		}
		if p.Disabled(date(2024, time.June, 15)) {
			t.Error("checkout day should be selectable")
		}
	})
}

func TestPick(t *testing.T) {
	t.Run("ValidRange", func(t *testing.T) {
		p := testPicker()
		if s := p.Pick(date(2024, time.June, 2)); s != Partial {
			t.Fatalf("state = %v, want Partial", s)
		}
		if s := p.Pick(date(2024, time.June, 6)); s != Valid {
			t.Fatalf("state = %v, want Valid", s)
		}
		r, ok := p.Selection()
		if !ok || r.From != date(2024, time.June, 2) || r.To != date(2024, time.June, 6) {
			t.Errorf("selection = %+v ok=%v", r, ok)
		}
	})

	t.Run("ConflictRejectsAndResets", func(t *testing.T) {
		p := testPicker()
		p.Pick(date(2024, time.June, 8))
		// June 8 -> June 16 spans the booked June 10-14.
		if s := p.Pick(date(2024, time.June, 16)); s != Conflict {
			t.Fatalf("state = %v, want Conflict", s)
		}
		if _, ok := p.Selection(); ok {
			t.Error("rejected selection must not be retained")
		}
		// From the consumer's point of view we are back at Empty: the next
		// pick starts a fresh range.
		if s := p.Pick(date(2024, time.June, 2)); s != Partial {
			t.Errorf("state after conflict pick = %v, want Partial", s)
		}
	})

	t.Run("CheckoutDayStart", func(t *testing.T) {
		p := testPicker()
		p.Pick(date(2024, time.June, 15))
		if s := p.Pick(date(2024, time.June, 18)); s != Valid {
			t.Errorf("stay starting on a checkout day should be valid, got %v", s)
		}
	})

	t.Run("DisabledDayRefused", func(t *testing.T) {
		p := testPicker()
		if s := p.Pick(date(2024, time.May, 20)); s != Empty {
			t.Errorf("picking a past day should be refused, got %v", s)
		}
		p.Pick(date(2024, time.June, 2))
		if s := p.Pick(date(2024, time.June, 12)); s != Partial {
			t.Errorf("picking a booked day should keep Partial, got %v", s)
		}
	})

	t.Run("SameDayDeselects", func(t *testing.T) {
		p := testPicker()
		p.Pick(date(2024, time.June, 2))
		if s := p.Pick(date(2024, time.June, 2)); s != Empty {
			t.Errorf("state = %v, want Empty", s)
		}
	})

	t.Run("ReversedPickNormalizes", func(t *testing.T) {
		p := testPicker()
		p.Pick(date(2024, time.June, 6))
		if s := p.Pick(date(2024, time.June, 2)); s != Valid {
			t.Fatalf("state = %v, want Valid", s)
		}
		r, _ := p.Selection()
		if r.From != date(2024, time.June, 2) || r.To != date(2024, time.June, 6) {
			t.Errorf("range not normalized: %+v", r)
		}
	})

	t.Run("ReselectAfterClear", func(t *testing.T) {
		// Selecting, deselecting, reselecting yields the same outcome.
		p := testPicker()
		p.Pick(date(2024, time.June, 2))
		p.Pick(date(2024, time.June, 6))
		first, _ := p.Selection()
		p.Clear()
		p.Pick(date(2024, time.June, 2))
		p.Pick(date(2024, time.June, 6))
		again, ok := p.Selection()
		if !ok || again != first {
			t.Errorf("re-selection differs: %+v vs %+v", again, first)
		}
	})
}

func TestMonthGrid(t *testing.T) {
	p := testPicker()
	m := MonthGrid(2024, time.June, p.Disabled, stay.Range{})

	// June 2024 starts on a Saturday; the grid pads back to Monday May 27.
	first := m.Weeks[0][0]
	if first.Date != date(2024, time.May, 27) || first.InMonth {
		t.Errorf("first cell = %+v", first)
	}

	var seen int
	for _, w := range m.Weeks {
		for _, d := range w {
			if d.InMonth {
				seen++
				_, _, day := d.Date.Date()
				if day >= 10 && day <= 14 && !d.Disabled {
					t.Errorf("June %d should render disabled", day)
				}
				if day == 15 && d.Disabled {
					t.Error("checkout day June 15 should render enabled")
				}
			}
		}
	}
	if seen != 30 {
		t.Errorf("June should have 30 in-month cells, got %d", seen)
	}
}
