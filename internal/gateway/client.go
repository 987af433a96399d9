// Package gateway is the HTTP client for the remote booking API. The remote
// system owns all venue and booking data; every mutation round-trips through
// here before local state is considered durable.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/staybook/internal/domain/stay"
)

// Credentials identify one authenticated remote session. They are supplied
// at construction; there is no ambient global session.
type Credentials struct {
	APIKey      string
	AccessToken string // empty for unauthenticated browsing
}

type Client struct {
	hc      *http.Client
	baseURL string
	creds   Credentials
}

func New(baseURL string, creds Credentials) *Client {
	return &Client{
		hc:      &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		creds:   creds,
	}
}

// WithToken returns a client bound to a different access token, sharing the
// underlying HTTP client.
func (c *Client) WithToken(token string) *Client {
	return &Client{hc: c.hc, baseURL: c.baseURL, creds: Credentials{APIKey: c.creds.APIKey, AccessToken: token}}
}

// --- auth ---

// Login authenticates against the remote API and returns the profile plus
// its bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (Profile, string, error) {
	body := map[string]string{"email": email, "password": password}
	var data struct {
		wireProfile
		AccessToken string `json:"accessToken"`
	}
	if err := c.call(ctx, http.MethodPost, "/auth/login", nil, body, &data); err != nil {
		return Profile{}, "", err
	}
	return data.wireProfile.profile(), data.AccessToken, nil
}

// Register creates a remote account.
func (c *Client) Register(ctx context.Context, name, email, password string, venueManager bool) (Profile, error) {
	body := map[string]any{
		"name":         name,
		"email":        email,
		"password":     password,
		"venueManager": venueManager,
	}
	var data wireProfile
	if err := c.call(ctx, http.MethodPost, "/auth/register", nil, body, &data); err != nil {
		return Profile{}, err
	}
	return data.profile(), nil
}

// --- venues ---

func (c *Client) ListVenues(ctx context.Context, page, limit int) ([]Venue, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var data []wireVenue
	if err := c.call(ctx, http.MethodGet, "/venues", q, nil, &data); err != nil {
		return nil, err
	}
	return venues(data)
}

func (c *Client) SearchVenues(ctx context.Context, query string) ([]Venue, error) {
	q := url.Values{}
	q.Set("q", query)
	var data []wireVenue
	if err := c.call(ctx, http.MethodGet, "/venues/search", q, nil, &data); err != nil {
		return nil, err
	}
	return venues(data)
}

// GetVenue fetches one venue; with expandBookings the venue's existing
// bookings and owner are included.
func (c *Client) GetVenue(ctx context.Context, id string, expandBookings bool) (Venue, error) {
	q := url.Values{}
	if expandBookings {
		q.Set("_bookings", "true")
		q.Set("_owner", "true")
	}
	var data wireVenue
	if err := c.call(ctx, http.MethodGet, "/venues/"+url.PathEscape(id), q, nil, &data); err != nil {
		return Venue{}, err
	}
	return data.venue()
}

func (c *Client) CreateVenue(ctx context.Context, in VenueInput) (Venue, error) {
	var data wireVenue
	if err := c.call(ctx, http.MethodPost, "/venues", nil, in, &data); err != nil {
		return Venue{}, err
	}
	return data.venue()
}

func (c *Client) UpdateVenue(ctx context.Context, id string, in VenueInput) (Venue, error) {
	var data wireVenue
	if err := c.call(ctx, http.MethodPut, "/venues/"+url.PathEscape(id), nil, in, &data); err != nil {
		return Venue{}, err
	}
	return data.venue()
}

func (c *Client) DeleteVenue(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/venues/"+url.PathEscape(id), nil, nil, nil)
}

// --- profiles ---

func (c *Client) GetProfile(ctx context.Context, name string) (Profile, error) {
	var data wireProfile
	if err := c.call(ctx, http.MethodGet, "/profiles/"+url.PathEscape(name), nil, nil, &data); err != nil {
		return Profile{}, err
	}
	return data.profile(), nil
}

// SetVenueManager toggles the venue-manager flag on a profile.
func (c *Client) SetVenueManager(ctx context.Context, name string, manager bool) (Profile, error) {
	body := map[string]bool{"venueManager": manager}
	var data wireProfile
	if err := c.call(ctx, http.MethodPut, "/profiles/"+url.PathEscape(name), nil, body, &data); err != nil {
		return Profile{}, err
	}
	return data.profile(), nil
}

// --- bookings ---

// ListBookingsForProfile returns the profile's bookings, optionally with the
// venue of each booking expanded.
func (c *Client) ListBookingsForProfile(ctx context.Context, name string, expandVenue bool) ([]Booking, error) {
	q := url.Values{}
	if expandVenue {
		q.Set("_venue", "true")
	}
	var data []wireBooking
	if err := c.call(ctx, http.MethodGet, "/profiles/"+url.PathEscape(name)+"/bookings", q, nil, &data); err != nil {
		return nil, err
	}
	out := make([]Booking, 0, len(data))
	for _, wb := range data {
		b, err := wb.booking()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (Booking, error) {
	body := map[string]any{
		"venueId":  req.VenueID,
		"dateFrom": req.From.String(),
		"dateTo":   req.To.String(),
		"guests":   req.Guests,
	}
	var data wireBooking
	if err := c.call(ctx, http.MethodPost, "/bookings", nil, body, &data); err != nil {
		return Booking{}, err
	}
	return data.booking()
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/bookings/"+url.PathEscape(id), nil, nil, nil)
}

// --- transport ---

// call performs one request against the remote API. Successful responses are
// unwrapped from the {"data": ...} envelope into out; non-2xx responses are
// returned as *RemoteError.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		jb, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(jb)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.creds.APIKey != "" {
		req.Header.Set("X-API-Key", c.creds.APIKey)
	}
	if c.creds.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode >= 400 {
		return remoteError(res.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return fmt.Errorf("gateway: decode %s %s: %w", method, path, err)
	}
	return json.Unmarshal(envelope.Data, out)
}

func remoteError(status int, body []byte) *RemoteError {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	_ = json.Unmarshal(body, &payload)
	if len(payload.Errors) > 0 && payload.Errors[0].Message != "" {
		return &RemoteError{Status: status, Message: payload.Errors[0].Message}
	}
	return &RemoteError{Status: status, Message: fmt.Sprintf("HTTP %d", status)}
}

// --- wire formats ---
//
// Dates cross the boundary as ISO-8601 date(-time) strings and are parsed to
// calendar-day precision before any interval math.

type wireProfile struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	VenueManager bool   `json:"venueManager"`
	Avatar       *Media `json:"avatar"`
	Banner       *Media `json:"banner"`
}

func (w wireProfile) profile() Profile {
	return Profile{
		Name:         w.Name,
		Email:        w.Email,
		VenueManager: w.VenueManager,
		Avatar:       w.Avatar,
		Banner:       w.Banner,
	}
}

type wireVenue struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	MaxGuests   int           `json:"maxGuests"`
	Media       []Media       `json:"media"`
	Meta        Amenities     `json:"meta"`
	Location    *Location     `json:"location"`
	Owner       *wireProfile  `json:"owner"`
	Bookings    []wireBooking `json:"bookings"`
	Created     string        `json:"created"`
	Updated     string        `json:"updated"`
}

func (w wireVenue) venue() (Venue, error) {
	v := Venue{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Price:       w.Price,
		MaxGuests:   w.MaxGuests,
		Media:       w.Media,
		Meta:        w.Meta,
		Location:    w.Location,
		Created:     parseStamp(w.Created),
		Updated:     parseStamp(w.Updated),
	}
	if w.Owner != nil {
		p := w.Owner.profile()
		v.Owner = &p
	}
	for _, wb := range w.Bookings {
		b, err := wb.booking()
		if err != nil {
			return Venue{}, err
		}
		v.Bookings = append(v.Bookings, b)
	}
	return v, nil
}

func venues(ws []wireVenue) ([]Venue, error) {
	out := make([]Venue, 0, len(ws))
	for _, w := range ws {
		v, err := w.venue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type wireBooking struct {
	ID       string       `json:"id"`
	DateFrom string       `json:"dateFrom"`
	DateTo   string       `json:"dateTo"`
	Guests   int          `json:"guests"`
	Venue    *wireVenue   `json:"venue"`
	Customer *wireProfile `json:"customer"`
	Created  string       `json:"created"`
	Updated  string       `json:"updated"`
}

func (w wireBooking) booking() (Booking, error) {
	from, err := stay.ParseDate(w.DateFrom)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s: dateFrom: %w", w.ID, err)
	}
	to, err := stay.ParseDate(w.DateTo)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s: dateTo: %w", w.ID, err)
	}
	b := Booking{
		ID:      w.ID,
		From:    from,
		To:      to,
		Guests:  w.Guests,
		Created: parseStamp(w.Created),
		Updated: parseStamp(w.Updated),
	}
	if w.Venue != nil {
		v, err := w.Venue.venue()
		if err != nil {
			return Booking{}, err
		}
		b.Venue = &v
	}
	if w.Customer != nil {
		p := w.Customer.profile()
		b.Customer = &p
	}
	return b, nil
}

// parseStamp reads the informational created/updated timestamps; they carry
// no booking semantics, so parse failures just yield the zero time.
func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
