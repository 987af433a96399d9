// Package bookings orchestrates booking mutations against the remote
// gateway: create, cancel, and change-dates. Cancel is optimistic with
// rollback; change-dates is a two-phase delete-then-create with an unsafe
// window between the phases that surfaces as PartialFailure.
package bookings

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/example/staybook/internal/domain/stay"
	"github.com/example/staybook/internal/gateway"
)

// Gateway is the slice of the remote API the orchestrator needs.
type Gateway interface {
	ListBookingsForProfile(ctx context.Context, name string, expandVenue bool) ([]gateway.Booking, error)
	GetVenue(ctx context.Context, id string, expandBookings bool) (gateway.Venue, error)
	CreateBooking(ctx context.Context, req gateway.BookingRequest) (gateway.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// Orchestrator owns the locally displayed booking list for one profile. It
// is the list's only writer; readers get copies. At most one mutation per
// booking id is in flight at a time.
type Orchestrator struct {
	gw      Gateway
	profile string
	now     func() time.Time

	mu   sync.Mutex
	list []gateway.Booking
	busy map[string]struct{}
}

func New(gw Gateway, profile string) *Orchestrator {
	return &Orchestrator{gw: gw, profile: profile, now: time.Now, busy: make(map[string]struct{})}
}

// Refresh replaces the local list wholesale with the remote's authoritative
// state.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	bs, err := o.gw.ListBookingsForProfile(ctx, o.profile, true)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.list = bs
	o.mu.Unlock()
	return nil
}

// Bookings returns a copy of the locally displayed list.
func (o *Orchestrator) Bookings() []gateway.Booking {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]gateway.Booking, len(o.list))
	copy(out, o.list)
	return out
}

// Get returns the tracked booking with the given id.
func (o *Orchestrator) Get(id string) (gateway.Booking, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, b := range o.list {
		if b.ID == id {
			return b, true
		}
	}
	return gateway.Booking{}, false
}

// Create books a stay at the venue. Validation runs locally first; nothing
// is applied optimistically, the list changes only after the remote accepts.
func (o *Orchestrator) Create(ctx context.Context, venue gateway.Venue, r stay.Range, guests int) (gateway.Booking, error) {
	// Creates are keyed by venue so two creates for the same venue cannot
	// race each other, while different venues proceed concurrently.
	key := "new:" + venue.ID
	if err := o.acquire(key); err != nil {
		return gateway.Booking{}, err
	}
	defer o.release(key)

	if v := stay.Check(stay.Today(o.now()), venue.MaxGuests, venue.BlockedIntervals(""), r, guests); !v.OK {
		return gateway.Booking{}, &ValidationError{Reason: v.Reason}
	}

	b, err := o.gw.CreateBooking(ctx, gateway.BookingRequest{
		VenueID: venue.ID,
		From:    r.From,
		To:      r.To,
		Guests:  guests,
	})
	if err != nil {
		return gateway.Booking{}, err
	}
	if b.Venue == nil {
		v := venue
		b.Venue = &v
	}
	o.mu.Lock()
	o.list = append(o.list, b)
	o.mu.Unlock()
	return b, nil
}

// Cancel removes the booking. The local list is updated optimistically
// before the network call; on failure the pre-removal list is restored
// verbatim and the error surfaced. Cancelling an already-cancelled booking
// fails gracefully with the remote's error.
func (o *Orchestrator) Cancel(ctx context.Context, id string) error {
	if err := o.acquire(id); err != nil {
		return err
	}
	defer o.release(id)

	tx, ok := o.beginRemove(id)
	if !ok {
		return ErrUnknownBooking
	}

	if err := o.gw.DeleteBooking(ctx, id); err != nil {
		o.rollback(tx)
		return err
	}
	o.commit(tx)
	return nil
}

// Change reschedules the booking to a new range (and guest count). The
// remote has no compound move primitive, so this is delete-then-create,
// strictly in that order: the old booking must stop occupying the calendar
// before the new range is submitted.
//
// Failure modes:
//   - pre-check or delete fails: nothing changed, old booking intact.
//   - delete succeeds, create fails: the original booking is gone and no new
//     one exists; returned as *PartialFailure, never as a plain create error.
func (o *Orchestrator) Change(ctx context.Context, id string, r stay.Range, guests int) (gateway.Booking, error) {
	if err := o.acquire(id); err != nil {
		return gateway.Booking{}, err
	}
	defer o.release(id)

	old, ok := o.Get(id)
	if !ok {
		return gateway.Booking{}, ErrUnknownBooking
	}
	venueID := ""
	if old.Venue != nil {
		venueID = old.Venue.ID
	}
	if venueID == "" {
		return gateway.Booking{}, ErrUnknownBooking
	}

	// Re-validate against the venue's current calendar, with the booking
	// being changed excluded: its own existing range must not make the new
	// dates spuriously conflict.
	venue, err := o.gw.GetVenue(ctx, venueID, true)
	if err != nil {
		return gateway.Booking{}, err
	}
	if v := stay.Check(stay.Today(o.now()), venue.MaxGuests, venue.BlockedIntervals(id), r, guests); !v.OK {
		return gateway.Booking{}, &ValidationError{Reason: v.Reason}
	}

	// Phase one: delete. Abort entirely on failure.
	tx, ok := o.beginRemove(id)
	if !ok {
		return gateway.Booking{}, ErrUnknownBooking
	}
	if err := o.gw.DeleteBooking(ctx, id); err != nil {
		o.rollback(tx)
		return gateway.Booking{}, err
	}
	o.commit(tx)

	// Phase two: create. From here the old booking is gone remotely; a
	// failure leaves the user with no booking at all.
	nb, err := o.gw.CreateBooking(ctx, gateway.BookingRequest{
		VenueID: venueID,
		From:    r.From,
		To:      r.To,
		Guests:  guests,
	})
	if err != nil {
		return gateway.Booking{}, &PartialFailure{Lost: old, Err: err}
	}
	if nb.Venue == nil {
		v := venue
		nb.Venue = &v
	}
	o.mu.Lock()
	o.list = append(o.list, nb)
	o.mu.Unlock()

	// Reconcile with the remote's authoritative state. The swap already
	// succeeded, so a refresh failure is logged, not surfaced.
	if err := o.Refresh(ctx); err != nil {
		log.Printf("bookings: refresh after change %s: %v", id, err)
	}
	return nb, nil
}

// acquire reserves the mutation slot for a key; a second mutation on the
// same key while one is pending is rejected, never queued.
func (o *Orchestrator) acquire(key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, inFlight := o.busy[key]; inFlight {
		return ErrBusy
	}
	o.busy[key] = struct{}{}
	return nil
}

func (o *Orchestrator) release(key string) {
	o.mu.Lock()
	delete(o.busy, key)
	o.mu.Unlock()
}
