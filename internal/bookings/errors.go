package bookings

import (
	"errors"
	"fmt"

	"github.com/example/staybook/internal/domain/stay"
	"github.com/example/staybook/internal/gateway"
)

var (
	// ErrBusy means another mutation for the same booking is still in
	// flight. The caller may retry once it settles.
	ErrBusy = errors.New("a change for this booking is already in progress")

	// ErrUnknownBooking means the id is not in the locally tracked list.
	ErrUnknownBooking = errors.New("booking not found")
)

// ValidationError is a local pre-submission failure. It never reaches the
// network.
type ValidationError struct {
	Reason stay.Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case stay.ReasonIncomplete:
		return "select both a check-in and a checkout date"
	case stay.ReasonZeroNights:
		return "the stay must be at least one night"
	case stay.ReasonCapacity:
		return "guest count exceeds the venue's capacity"
	case stay.ReasonPastDate:
		return "the stay cannot start in the past"
	case stay.ReasonConflict:
		return "the selected dates conflict with an existing booking"
	}
	return fmt.Sprintf("invalid booking request (%s)", e.Reason)
}

// PartialFailure is the change-dates gap: the old booking was deleted but
// the replacement could not be created. The delete cannot be undone, so this
// is unrecoverable rather than rolled back, and must never be presented as
// an ordinary create failure.
type PartialFailure struct {
	Lost gateway.Booking // the booking that no longer exists remotely
	Err  error           // the create failure
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("your previous booking (%s to %s) was cancelled but the new dates could not be saved; please rebook: %v",
		e.Lost.From, e.Lost.To, e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }
