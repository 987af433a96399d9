package bookings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/staybook/internal/domain/stay"
	"github.com/example/staybook/internal/gateway"
)

type fakeGateway struct {
	mu    sync.Mutex
	calls []string

	listFn   func(ctx context.Context, name string, expandVenue bool) ([]gateway.Booking, error)
	venueFn  func(ctx context.Context, id string, expandBookings bool) (gateway.Venue, error)
	createFn func(ctx context.Context, req gateway.BookingRequest) (gateway.Booking, error)
	deleteFn func(ctx context.Context, id string) error
}

func (f *fakeGateway) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeGateway) ListBookingsForProfile(ctx context.Context, name string, expandVenue bool) ([]gateway.Booking, error) {
	f.record("list")
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, name, expandVenue)
}

func (f *fakeGateway) GetVenue(ctx context.Context, id string, expandBookings bool) (gateway.Venue, error) {
	f.record("venue:" + id)
	return f.venueFn(ctx, id, expandBookings)
}

func (f *fakeGateway) CreateBooking(ctx context.Context, req gateway.BookingRequest) (gateway.Booking, error) {
	f.record("create:" + req.VenueID)
	return f.createFn(ctx, req)
}

func (f *fakeGateway) DeleteBooking(ctx context.Context, id string) error {
	f.record("delete:" + id)
	return f.deleteFn(ctx, id)
}

func day(y int, m time.Month, d int) stay.Date { return stay.NewDate(y, m, d) }

func rng(from, to stay.Date) stay.Range { return stay.Range{From: from, To: to} }

func testVenue() gateway.Venue {
	return gateway.Venue{
		ID:        "v1",
		Name:      "Seaside Cabin",
		Price:     120,
		MaxGuests: 4,
		Bookings: []gateway.Booking{
			{ID: "b1", From: day(2024, time.June, 1), To: day(2024, time.June, 5), Guests: 2},
		},
	}
}

// testOrch pins the clock to 2024-05-01 so the fixture dates stay ahead of
// "today".
func testOrch(gw Gateway) *Orchestrator {
	o := New(gw, "ann")
	o.now = func() time.Time { return time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC) }
	return o
}

func seeded(gw Gateway) *Orchestrator {
	v := testVenue()
	o := testOrch(gw)
	o.list = []gateway.Booking{
		{ID: "a", From: day(2024, time.May, 1), To: day(2024, time.May, 3), Venue: &v},
		{ID: "b1", From: day(2024, time.June, 1), To: day(2024, time.June, 5), Venue: &v},
		{ID: "c", From: day(2024, time.August, 1), To: day(2024, time.August, 3), Venue: &v},
	}
	return o
}

func ids(bs []gateway.Booking) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("ConflictNeverReachesNetwork", func(t *testing.T) {
		gw := &fakeGateway{}
		o := testOrch(gw)
		_, err := o.Create(ctx, testVenue(), rng(day(2024, time.June, 3), day(2024, time.June, 7)), 2)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Reason != stay.ReasonConflict {
			t.Fatalf("want conflict ValidationError, got %v", err)
		}
		if len(gw.calls) != 0 {
			t.Errorf("validation failure must not call the gateway: %v", gw.calls)
		}
	})

	t.Run("PastStartNeverReachesNetwork", func(t *testing.T) {
		gw := &fakeGateway{}
		o := testOrch(gw)
		_, err := o.Create(ctx, testVenue(), rng(day(2024, time.April, 10), day(2024, time.April, 12)), 2)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Reason != stay.ReasonPastDate {
			t.Fatalf("want past-date ValidationError, got %v", err)
		}
		if len(gw.calls) != 0 {
			t.Errorf("validation failure must not call the gateway: %v", gw.calls)
		}
	})

	t.Run("RemoteFailureLeavesListUntouched", func(t *testing.T) {
		gw := &fakeGateway{
			createFn: func(ctx context.Context, req gateway.BookingRequest) (gateway.Booking, error) {
				return gateway.Booking{}, &gateway.RemoteError{Status: 409, Message: "taken"}
			},
		}
		o := testOrch(gw)
		_, err := o.Create(ctx, testVenue(), rng(day(2024, time.June, 10), day(2024, time.June, 12)), 2)
		var re *gateway.RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("want *RemoteError, got %v", err)
		}
		if len(o.Bookings()) != 0 {
			t.Error("nothing should be applied locally on create failure")
		}
	})

	t.Run("SuccessAppends", func(t *testing.T) {
		gw := &fakeGateway{
			createFn: func(ctx context.Context, req gateway.BookingRequest) (gateway.Booking, error) {
				return gateway.Booking{ID: "new1", From: req.From, To: req.To, Guests: req.Guests}, nil
			},
		}
		o := testOrch(gw)
		b, err := o.Create(ctx, testVenue(), rng(day(2024, time.June, 5), day(2024, time.June, 10)), 2)
		if err != nil {
			t.Fatal(err)
		}
		if b.ID != "new1" || b.Venue == nil || b.Venue.ID != "v1" {
			t.Errorf("got %+v", b)
		}
		if got := ids(o.Bookings()); !equalIDs(got, []string{"new1"}) {
			t.Errorf("list = %v", got)
		}
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("OptimisticThenCommit", func(t *testing.T) {
		var seen []string
		gw := &fakeGateway{}
		o := seeded(gw)
		gw.deleteFn = func(ctx context.Context, id string) error {
			// The local list is already updated when the network call runs.
			seen = ids(o.Bookings())
			return nil
		}
		if err := o.Cancel(ctx, "b1"); err != nil {
			t.Fatal(err)
		}
		if !equalIDs(seen, []string{"a", "c"}) {
			t.Errorf("removal was not optimistic: %v", seen)
		}
		if got := ids(o.Bookings()); !equalIDs(got, []string{"a", "c"}) {
			t.Errorf("final list = %v", got)
		}
	})

	t.Run("FailureRestoresVerbatim", func(t *testing.T) {
		gw := &fakeGateway{
			deleteFn: func(ctx context.Context, id string) error {
				return &gateway.RemoteError{Status: 404, Message: "already deleted"}
			},
		}
		o := seeded(gw)
		err := o.Cancel(ctx, "b1")
		var re *gateway.RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("want *RemoteError, got %v", err)
		}
		if got := ids(o.Bookings()); !equalIDs(got, []string{"a", "b1", "c"}) {
			t.Errorf("rollback must restore order exactly, got %v", got)
		}
	})

	t.Run("UnknownID", func(t *testing.T) {
		o := seeded(&fakeGateway{deleteFn: func(ctx context.Context, id string) error { return nil }})
		if err := o.Cancel(ctx, "nope"); !errors.Is(err, ErrUnknownBooking) {
			t.Errorf("got %v", err)
		}
	})
}

func TestChange(t *testing.T) {
	ctx := context.Background()

	newRange := rng(day(2024, time.July, 1), day(2024, time.July, 3))

	t.Run("DeleteThenCreateOrder", func(t *testing.T) {
		gw := &fakeGateway{
			venueFn: func(ctx context.Context, id string, expand bool) (gateway.Venue, error) {
				return testVenue(), nil
			},
			deleteFn: func(ctx context.Context, id string) error { return nil },
			createFn: func(ctx context.Context, req gateway.BookingRequest) (gateway.Booking, error) {
				return gateway.Booking{ID: "b2", From: req.From, To: req.To, Guests: req.Guests}, nil
			},
		}
		o := seeded(gw)
		nb, err := o.Change(ctx, "b1", newRange, 2)
		if err != nil {
			t.Fatal(err)
		}
		if nb.ID != "b2" {
			t.Errorf("got %+v", nb)
		}
		want := []string{"venue:v1", "delete:b1", "create:v1", "list"}
		if !equalIDs(gw.calls, want) {
			t.Errorf("call order = %v, want %v", gw.calls, want)
		}
	})

	t.Run("SelfExcludedFromConflictCheck", func(t *testing.T) {
		// Rescheduling within the booking's own current range must not
		// conflict with itself.
		gw := &fakeGateway{
			venueFn: func(ctx context.Context, id string, expand bool) (gateway.Venue, error) {
				return testVenue(), nil
			},
			deleteFn: func(ctx context.Context, id string) error { return nil },
			createFn: func(ctx context.Context, req gateway.BookingRequest) (gateway.Booking, error) {
				return gateway.Booking{ID: "b2", From: req.From, To: req.To, Guests: req.Guests}, nil
			},
		}
		o := seeded(gw)
		if _, err := o.Change(ctx, "b1", rng(day(2024, time.June, 2), day(2024, time.June, 4)), 2); err != nil {
			t.Errorf("overlap with own range should pass validation: %v", err)
		}
	})

	t.Run("DeleteFailureAborts", func(t *testing.T) {
		gw := &fakeGateway{
			venueFn: func(ctx context.Context, id string, expand bool) (gateway.Venue, error) {
				return testVenue(), nil
			},
			deleteFn: func(ctx context.Context, id string) error {
				return &gateway.RemoteError{Status: 500, Message: "boom"}
			},
		}
		o := seeded(gw)
		_, err := o.Change(ctx, "b1", newRange, 2)
		var re *gateway.RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("want *RemoteError, got %v", err)
		}
		for _, c := range gw.calls {
			if c == "create:v1" {
				t.Error("create must not be attempted after delete failure")
			}
		}
		if got := ids(o.Bookings()); !equalIDs(got, []string{"a", "b1", "c"}) {
			t.Errorf("old booking must remain untouched, got %v", got)
		}
	})

	t.Run("PartialFailure", func(t *testing.T) {
		gw := &fakeGateway{
			venueFn: func(ctx context.Context, id string, expand bool) (gateway.Venue, error) {
				return testVenue(), nil
			},
			deleteFn: func(ctx context.Context, id string) error { return nil },
			createFn: func(ctx context.Context, req gateway.BookingRequest) (gateway.Booking, error) {
				return gateway.Booking{}, &gateway.RemoteError{Status: 409, Message: "just taken"}
			},
		}
		o := seeded(gw)
		_, err := o.Change(ctx, "b1", newRange, 2)

		// Distinguishable by kind, not just message text.
		var pf *PartialFailure
		if !errors.As(err, &pf) {
			t.Fatalf("want *PartialFailure, got %v", err)
		}
		if pf.Lost.ID != "b1" {
			t.Errorf("Lost = %+v", pf.Lost)
		}
		var re *gateway.RemoteError
		if !errors.As(pf.Err, &re) || re.Status != 409 {
			t.Errorf("underlying create error not preserved: %v", pf.Err)
		}
		// The list reflects reality: b1 is gone and nothing replaced it.
		if got := ids(o.Bookings()); !equalIDs(got, []string{"a", "c"}) {
			t.Errorf("list = %v", got)
		}
	})

	t.Run("ValidationRunsBeforeDelete", func(t *testing.T) {
		gw := &fakeGateway{
			venueFn: func(ctx context.Context, id string, expand bool) (gateway.Venue, error) {
				return testVenue(), nil
			},
		}
		o := seeded(gw)
		_, err := o.Change(ctx, "b1", rng(day(2024, time.July, 1), day(2024, time.July, 1)), 2)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Reason != stay.ReasonZeroNights {
			t.Fatalf("got %v", err)
		}
		for _, c := range gw.calls {
			if c == "delete:b1" {
				t.Error("delete must not run for an invalid range")
			}
		}
	})
}

func TestBusySet(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondMutationRejected", func(t *testing.T) {
		started := make(chan struct{})
		unblock := make(chan struct{})
		gw := &fakeGateway{
			deleteFn: func(ctx context.Context, id string) error {
				if id == "b1" {
					close(started)
					<-unblock
				}
				return nil
			},
		}
		o := seeded(gw)

		done := make(chan error, 1)
		go func() { done <- o.Cancel(ctx, "b1") }()
		<-started

		if err := o.Cancel(ctx, "b1"); !errors.Is(err, ErrBusy) {
			t.Errorf("second mutation on same id: got %v, want ErrBusy", err)
		}
		// A different booking is not blocked.
		if err := o.Cancel(ctx, "a"); errors.Is(err, ErrBusy) {
			t.Error("mutation on a different id must not be blocked")
		}

		close(unblock)
		if err := <-done; err != nil {
			t.Errorf("first cancel: %v", err)
		}
	})

	t.Run("SlotFreedAfterCompletion", func(t *testing.T) {
		gw := &fakeGateway{
			deleteFn: func(ctx context.Context, id string) error {
				return &gateway.RemoteError{Status: 500, Message: "boom"}
			},
		}
		o := seeded(gw)
		if err := o.Cancel(ctx, "b1"); err == nil {
			t.Fatal("expected failure")
		}
		// The failed attempt must release the slot for a retry.
		if err := o.Cancel(ctx, "b1"); errors.Is(err, ErrBusy) {
			t.Error("slot not released after failed mutation")
		}
	})
}

func TestRefresh(t *testing.T) {
	gw := &fakeGateway{
		listFn: func(ctx context.Context, name string, expandVenue bool) ([]gateway.Booking, error) {
			if name != "ann" || !expandVenue {
				t.Errorf("list called with name=%q expand=%v", name, expandVenue)
			}
			return []gateway.Booking{{ID: "x"}}, nil
		},
	}
	o := seeded(gw)
	if err := o.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := ids(o.Bookings()); !equalIDs(got, []string{"x"}) {
		t.Errorf("list = %v", got)
	}
}
