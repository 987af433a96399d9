package gateway

import (
	"fmt"
	"time"

	"github.com/example/staybook/internal/domain/stay"
)

// Media is an image with alternative text.
type Media struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// Location is a venue's optional geographic location.
type Location struct {
	Address string  `json:"address,omitempty"`
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// Amenities are the venue's amenity flags.
type Amenities struct {
	Wifi      bool `json:"wifi"`
	Parking   bool `json:"parking"`
	Breakfast bool `json:"breakfast"`
	Pets      bool `json:"pets"`
}

// Profile is a remote account. VenueManager accounts may create and edit
// venue listings.
type Profile struct {
	Name         string
	Email        string
	VenueManager bool
	Avatar       *Media
	Banner       *Media
}

// Venue is a bookable listing, owned by the remote system; the client holds
// read-through copies only. Bookings is populated only when the venue was
// fetched with expansion.
type Venue struct {
	ID          string
	Name        string
	Description string
	Price       float64
	MaxGuests   int
	Media       []Media
	Meta        Amenities
	Location    *Location
	Owner       *Profile
	Bookings    []Booking
	Created     time.Time
	Updated     time.Time
}

// BlockedIntervals projects the venue's expanded bookings onto the closed
// day intervals they occupy. exclude drops the booking with that id, used
// when re-validating a booking against its own venue.
func (v Venue) BlockedIntervals(exclude string) []stay.Interval {
	out := make([]stay.Interval, 0, len(v.Bookings))
	for _, b := range v.Bookings {
		if exclude != "" && b.ID == exclude {
			continue
		}
		out = append(out, b.Blocked())
	}
	return out
}

// Booking is a stay reservation. From is the check-in day (inclusive), To
// the checkout day (exclusive: the day itself is free for the next guest).
type Booking struct {
	ID       string
	From     stay.Date
	To       stay.Date
	Guests   int
	Venue    *Venue
	Customer *Profile
	Created  time.Time
	Updated  time.Time
}

// Blocked is the closed interval of days the booking occupies.
func (b Booking) Blocked() stay.Interval {
	return stay.BlockedInterval(b.From, b.To)
}

// Range is the booking's stay as a candidate range.
func (b Booking) Range() stay.Range {
	return stay.Range{From: b.From, To: b.To}
}

// BookingRequest is the payload for creating a booking.
type BookingRequest struct {
	VenueID string
	From    stay.Date
	To      stay.Date
	Guests  int
}

// VenueInput is the payload for creating or updating a venue listing.
type VenueInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	MaxGuests   int       `json:"maxGuests"`
	Media       []Media   `json:"media,omitempty"`
	Meta        Amenities `json:"meta"`
	Location    *Location `json:"location,omitempty"`
}

// Validate checks a venue listing before submission.
func (in VenueInput) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("name required")
	}
	if in.Price < 0 {
		return fmt.Errorf("price must be non-negative")
	}
	if in.MaxGuests < 1 {
		return fmt.Errorf("maxGuests must be at least 1")
	}
	return nil
}

// RemoteError is a non-success response from the remote API. The message is
// taken from the remote error payload when available, otherwise it falls
// back to "HTTP <status>".
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote rejected: %s (status=%d)", e.Message, e.Status)
}
