package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/staybook/internal/domain/stay"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return New(server.URL, Credentials{APIKey: "test-key", AccessToken: "test-token"})
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("AuthHeaders", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/venues/v1", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "test-key" {
				t.Errorf("missing api key header")
			}
			if r.Header.Get("Authorization") != "Bearer test-token" {
				t.Errorf("missing bearer token")
			}
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "v1", "name": "Cabin", "maxGuests": 4}})
		})
		c := newTestClient(t, mux)
		v, err := c.GetVenue(ctx, "v1", false)
		if err != nil {
			t.Fatal(err)
		}
		if v.ID != "v1" || v.MaxGuests != 4 {
			t.Errorf("got %+v", v)
		}
	})

	t.Run("ExpandedBookingsParseToDayPrecision", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/venues/v1", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("_bookings") != "true" {
				t.Error("expected _bookings=true")
			}
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
				"id": "v1", "name": "Cabin", "maxGuests": 4,
				"bookings": []map[string]any{{
					"id":       "b1",
					"dateFrom": "2024-06-01T12:34:56.000Z",
					"dateTo":   "2024-06-05T00:00:00.000Z",
					"guests":   2,
				}},
			}})
		})
		c := newTestClient(t, mux)
		v, err := c.GetVenue(ctx, "v1", true)
		if err != nil {
			t.Fatal(err)
		}
		if len(v.Bookings) != 1 {
			t.Fatalf("got %d bookings", len(v.Bookings))
		}
		b := v.Bookings[0]
		if !b.From.Equal(stay.NewDate(2024, time.June, 1)) || !b.To.Equal(stay.NewDate(2024, time.June, 5)) {
			t.Errorf("dates not truncated to days: %s..%s", b.From, b.To)
		}
		blocked := b.Blocked()
		if blocked.To.String() != "2024-06-04" {
			t.Errorf("blocked interval should exclude checkout day, got %s", blocked.To)
		}
	})

	t.Run("RemoteErrorMessage", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{
				"errors": []map[string]string{{"message": "The selected dates are not available"}},
			})
		})
		c := newTestClient(t, mux)
		_, err := c.CreateBooking(ctx, BookingRequest{
			VenueID: "v1",
			From:    stay.NewDate(2024, time.July, 1),
			To:      stay.NewDate(2024, time.July, 3),
			Guests:  2,
		})
		var re *RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("want *RemoteError, got %v", err)
		}
		if re.Status != http.StatusConflict || re.Message != "The selected dates are not available" {
			t.Errorf("got %+v", re)
		}
	})

	t.Run("RemoteErrorFallback", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/bookings/b1", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>nope</html>"))
		})
		c := newTestClient(t, mux)
		err := c.DeleteBooking(ctx, "b1")
		var re *RemoteError
		if !errors.As(err, &re) {
			t.Fatalf("want *RemoteError, got %v", err)
		}
		if re.Message != "HTTP 502" {
			t.Errorf("want HTTP 502 fallback, got %q", re.Message)
		}
	})

	t.Run("DeleteNoContent", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/bookings/b1", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("method = %s", r.Method)
			}
			w.WriteHeader(http.StatusNoContent)
		})
		c := newTestClient(t, mux)
		if err := c.DeleteBooking(ctx, "b1"); err != nil {
			t.Errorf("delete: %v", err)
		}
	})

	t.Run("Login", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["email"] != "ann@example.com" {
				t.Errorf("email = %q", body["email"])
			}
			json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
				"name": "ann", "email": "ann@example.com", "venueManager": true,
				"accessToken": "tok123",
			}})
		})
		c := newTestClient(t, mux)
		p, token, err := c.Login(ctx, "ann@example.com", "hunter22")
		if err != nil {
			t.Fatal(err)
		}
		if p.Name != "ann" || !p.VenueManager || token != "tok123" {
			t.Errorf("got %+v token=%q", p, token)
		}
	})

	t.Run("ListBookingsForProfile", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/profiles/ann/bookings", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("_venue") != "true" {
				t.Error("expected _venue=true")
			}
			json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{{
				"id": "b1", "dateFrom": "2024-06-01", "dateTo": "2024-06-05", "guests": 2,
				"venue": map[string]any{"id": "v1", "name": "Cabin", "maxGuests": 4},
			}}})
		})
		c := newTestClient(t, mux)
		bs, err := c.ListBookingsForProfile(ctx, "ann", true)
		if err != nil {
			t.Fatal(err)
		}
		if len(bs) != 1 || bs[0].Venue == nil || bs[0].Venue.ID != "v1" {
			t.Errorf("got %+v", bs)
		}
	})
}
