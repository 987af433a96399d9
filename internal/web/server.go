// Package web serves the booking-site frontend: venue browsing, availability
// calendars, booking management, and venue-manager listing forms. All data
// comes from the remote API; the server keeps only login state and the
// per-user mutation orchestrators.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/example/staybook/internal/auth"
	"github.com/example/staybook/internal/bookings"
	"github.com/example/staybook/internal/calendar"
	"github.com/example/staybook/internal/domain/stay"
	"github.com/example/staybook/internal/gateway"
	"github.com/example/staybook/internal/session"
)

//go:embed templates/*.html static/*
var fs embed.FS

type Server struct {
	Auth     *auth.Store
	Sessions *session.Store
	API      *gateway.Client // unauthenticated base client
	BaseURL  string

	mu    sync.Mutex
	orchs map[int64]*userOrch
}

type userOrch struct {
	token string
	orch  *bookings.Orchestrator
}

// orchFor returns the user's mutation orchestrator, rebuilding it when the
// remote session token changed. The orchestrator survives across requests so
// its busy-set and optimistic list behave like one client.
func (s *Server) orchFor(sess session.Session) *bookings.Orchestrator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orchs == nil {
		s.orchs = make(map[int64]*userOrch)
	}
	if u, ok := s.orchs[sess.UserID]; ok && u.token == sess.AccessToken {
		return u.orch
	}
	o := bookings.New(s.API.WithToken(sess.AccessToken), sess.ProfileName)
	s.orchs[sess.UserID] = &userOrch{token: sess.AccessToken, orch: o}
	return o
}

type tmplData struct {
	Title     string
	LoggedIn  bool
	Remote    *session.Session
	Flash     string
	FlashKind string // "", "error", "severe"

	Query    string
	Venues   []gateway.Venue
	Venue    gateway.Venue
	Months   []calendar.Month
	Bookings []gateway.Booking // upcoming stays
	Past     []gateway.Booking
	Booking  gateway.Booking
	Form     map[string]string
	Page     int
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.FileServer(http.FS(fs)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)

	// Public browsing.
	mux.HandleFunc("GET /{$}", s.handleVenueList)
	mux.HandleFunc("GET /venues/{id}", s.handleVenueDetail)

	// Everything below needs a local login.
	authed := func(h http.HandlerFunc) http.Handler { return s.Auth.RequireAuth(h) }
	mux.Handle("GET /connect", authed(s.handleConnectForm))
	mux.Handle("POST /connect", authed(s.handleConnect))
	mux.Handle("POST /disconnect", authed(s.handleDisconnect))
	mux.Handle("POST /venues/{id}/book", authed(s.handleBook))
	mux.Handle("GET /bookings", authed(s.handleBookings))
	mux.Handle("POST /bookings/{id}/cancel", authed(s.handleCancel))
	mux.Handle("GET /bookings/{id}/change", authed(s.handleChangeForm))
	mux.Handle("POST /bookings/{id}/change", authed(s.handleChange))
	mux.Handle("POST /profile/venue-manager", authed(s.handleVenueManagerToggle))
	mux.Handle("GET /manage/venues/new", authed(s.handleVenueNew))
	mux.Handle("POST /manage/venues", authed(s.handleVenueCreate))
	mux.Handle("GET /manage/venues/{id}/edit", authed(s.handleVenueEdit))
	mux.Handle("POST /manage/venues/{id}", authed(s.handleVenueUpdate))
	mux.Handle("POST /manage/venues/{id}/delete", authed(s.handleVenueDelete))

	return mux
}

// remote returns the caller's remote session, if any. Handlers that mutate
// bookings or venues require one.
func (s *Server) remote(r *http.Request) (session.Session, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		if uid, ok = s.Auth.SessionUserID(r); !ok {
			return session.Session{}, false
		}
	}
	sess, err := s.Sessions.Get(r.Context(), uid)
	if err != nil {
		return session.Session{}, false
	}
	return sess, true
}

func (s *Server) base(r *http.Request, title string) tmplData {
	d := tmplData{Title: title}
	if uid, ok := s.Auth.SessionUserID(r); ok {
		d.LoggedIn = true
		if sess, err := s.Sessions.Get(r.Context(), uid); err == nil {
			d.Remote = &sess
		}
	}
	return d
}

// --- local login ---

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/login.html", s.base(r, "Login"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	id, err := s.Auth.Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		d := s.base(r, "Login")
		d.Flash, d.FlashKind = "Invalid username or password", "error"
		s.render(w, "templates/login.html", d)
		return
	}
	if err := s.Auth.SetSession(w, r, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// --- remote session ---

func (s *Server) handleConnectForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "templates/connect.html", s.base(r, "Connect account"))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	profile, token, err := s.API.Login(r.Context(), email, r.FormValue("password"))
	if err != nil {
		d := s.base(r, "Connect account")
		d.Flash, d.FlashKind = remoteMessage(err), "error"
		s.render(w, "templates/connect.html", d)
		return
	}
	err = s.Sessions.Init(r.Context(), session.Session{
		UserID:       uid,
		ProfileName:  profile.Name,
		Email:        profile.Email,
		VenueManager: profile.VenueManager,
		AccessToken:  token,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/bookings", http.StatusFound)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := s.Sessions.Teardown(r.Context(), uid); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.mu.Lock()
	delete(s.orchs, uid)
	s.mu.Unlock()
	http.Redirect(w, r, "/", http.StatusFound)
}

// --- venues ---

func (s *Server) handleVenueList(w http.ResponseWriter, r *http.Request) {
	d := s.base(r, "Venues")
	d.Query = strings.TrimSpace(r.URL.Query().Get("q"))
	d.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if d.Page < 1 {
		d.Page = 1
	}

	var (
		vs  []gateway.Venue
		err error
	)
	if d.Query != "" {
		vs, err = s.API.SearchVenues(r.Context(), d.Query)
	} else {
		vs, err = s.API.ListVenues(r.Context(), d.Page, 24)
	}
	if err != nil {
		d.Flash, d.FlashKind = remoteMessage(err), "error"
	}
	d.Venues = vs
	s.render(w, "templates/venues.html", d)
}

func (s *Server) handleVenueDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	v, err := s.API.GetVenue(r.Context(), id, true)
	if err != nil {
		http.Error(w, remoteMessage(err), http.StatusBadGateway)
		return
	}
	d := s.base(r, v.Name)
	d.Venue = v
	d.Form = map[string]string{
		"from":   r.URL.Query().Get("from"),
		"to":     r.URL.Query().Get("to"),
		"guests": "2",
	}

	// Preview dates from the query string run through the selection state
	// machine, so a conflicting range is rejected before any booking attempt.
	now := time.Now()
	picker := calendar.NewPicker(stay.Today(now), v.BlockedIntervals(""))
	for _, key := range []string{"from", "to"} {
		if day, err := stay.ParseDate(d.Form[key]); err == nil {
			picker.Pick(day)
		}
	}
	if picker.State() == calendar.Conflict {
		d.Flash = (&bookings.ValidationError{Reason: stay.ReasonConflict}).Error()
		d.FlashKind = "error"
	}
	sel, _ := picker.Selection()
	d.Months = venueMonths(picker, now, sel)
	s.render(w, "templates/venue.html", d)
}

// venueMonths builds the current and next month grids with the venue's
// booked days and past days disabled and the chosen stay marked.
func venueMonths(picker *calendar.Picker, now time.Time, sel stay.Range) []calendar.Month {
	months := make([]calendar.Month, 0, 2)
	y, m, _ := now.Date()
	for i := 0; i < 2; i++ {
		months = append(months, calendar.MonthGrid(y, m, picker.Disabled, sel))
		m++
		if m > time.December {
			m = time.January
			y++
		}
	}
	return months
}

// --- booking mutations ---

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	id := r.PathValue("id")
	v, err := s.API.WithToken(sess.AccessToken).GetVenue(r.Context(), id, true)
	if err != nil {
		http.Error(w, remoteMessage(err), http.StatusBadGateway)
		return
	}

	rng, guests, ferr := bookingForm(r)
	sel := stay.Range{}
	if ferr == nil {
		sel = rng
	}
	renderErr := func(msg, kind string) {
		now := time.Now()
		picker := calendar.NewPicker(stay.Today(now), v.BlockedIntervals(""))
		d := s.base(r, v.Name)
		d.Venue = v
		d.Months = venueMonths(picker, now, sel)
		d.Form = map[string]string{
			"from":   r.FormValue("from"),
			"to":     r.FormValue("to"),
			"guests": r.FormValue("guests"),
		}
		d.Flash, d.FlashKind = msg, kind
		s.render(w, "templates/venue.html", d)
	}
	if ferr != nil {
		renderErr(ferr.Error(), "error")
		return
	}

	if _, err := s.orchFor(sess).Create(r.Context(), v, rng, guests); err != nil {
		renderErr(mutationMessage(err), flashKind(err))
		return
	}
	http.Redirect(w, r, "/bookings", http.StatusFound)
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	o := s.orchFor(sess)
	d := s.base(r, "My bookings")
	if err := o.Refresh(r.Context()); err != nil {
		d.Flash, d.FlashKind = remoteMessage(err), "error"
	}
	d.Bookings, d.Past = splitBookings(o.Bookings(), stay.Today(time.Now()))
	if f := r.URL.Query().Get("flash"); f != "" {
		d.Flash, d.FlashKind = f, r.URL.Query().Get("kind")
	}
	s.render(w, "templates/bookings.html", d)
}

// splitBookings partitions a booking list by calendar day: stays whose
// checkout day is still ahead of today count as upcoming (a stay in progress
// is upcoming), everything else is history.
func splitBookings(bs []gateway.Booking, today stay.Date) (upcoming, past []gateway.Booking) {
	for _, b := range bs {
		if b.To.After(today) {
			upcoming = append(upcoming, b)
		} else {
			past = append(past, b)
		}
	}
	return upcoming, past
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	o := s.orchFor(sess)
	if err := o.Cancel(r.Context(), r.PathValue("id")); err != nil {
		s.renderBookings(w, r, o, mutationMessage(err), flashKind(err))
		return
	}
	http.Redirect(w, r, "/bookings", http.StatusFound)
}

func (s *Server) handleChangeForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	o := s.orchFor(sess)
	b, ok := o.Get(r.PathValue("id"))
	if !ok {
		if err := o.Refresh(r.Context()); err == nil {
			b, ok = o.Get(r.PathValue("id"))
		}
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	d := s.base(r, "Change dates")
	d.Booking = b
	d.Form = map[string]string{
		"from":   b.From.String(),
		"to":     b.To.String(),
		"guests": strconv.Itoa(b.Guests),
	}
	if b.Venue != nil {
		d.Venue = *b.Venue
	}
	s.render(w, "templates/change.html", d)
}

func (s *Server) handleChange(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	o := s.orchFor(sess)
	id := r.PathValue("id")

	rng, guests, ferr := bookingForm(r)
	if ferr != nil {
		s.renderBookings(w, r, o, ferr.Error(), "error")
		return
	}
	if _, err := o.Change(r.Context(), id, rng, guests); err != nil {
		// A partial failure is rendered at its own severity: the user has
		// lost the original booking and must rebook.
		s.renderBookings(w, r, o, mutationMessage(err), flashKind(err))
		return
	}
	http.Redirect(w, r, "/bookings", http.StatusFound)
}

func (s *Server) renderBookings(w http.ResponseWriter, r *http.Request, o *bookings.Orchestrator, flash, kind string) {
	d := s.base(r, "My bookings")
	d.Bookings, d.Past = splitBookings(o.Bookings(), stay.Today(time.Now()))
	d.Flash, d.FlashKind = flash, kind
	s.render(w, "templates/bookings.html", d)
}

// --- venue management ---

func (s *Server) handleVenueManagerToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	want := r.FormValue("enabled") == "true"
	if _, err := s.API.WithToken(sess.AccessToken).SetVenueManager(r.Context(), sess.ProfileName, want); err != nil {
		http.Error(w, remoteMessage(err), http.StatusBadGateway)
		return
	}
	if err := s.Sessions.SetVenueManager(r.Context(), sess.UserID, want); err != nil {
		log.Printf("web: mirror venue-manager flag: %v", err)
	}
	http.Redirect(w, r, "/bookings", http.StatusFound)
}

func (s *Server) handleVenueNew(w http.ResponseWriter, r *http.Request) {
	d := s.base(r, "New venue")
	d.Form = map[string]string{"maxGuests": "2", "price": "100"}
	s.render(w, "templates/venue_form.html", d)
}

func (s *Server) handleVenueCreate(w http.ResponseWriter, r *http.Request) {
	s.saveVenue(w, r, "")
}

func (s *Server) handleVenueEdit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	v, err := s.API.WithToken(sess.AccessToken).GetVenue(r.Context(), r.PathValue("id"), false)
	if err != nil {
		http.Error(w, remoteMessage(err), http.StatusBadGateway)
		return
	}
	d := s.base(r, "Edit venue")
	d.Venue = v
	d.Form = venueForm(v)
	s.render(w, "templates/venue_form.html", d)
}

func (s *Server) handleVenueUpdate(w http.ResponseWriter, r *http.Request) {
	s.saveVenue(w, r, r.PathValue("id"))
}

func (s *Server) saveVenue(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	if !sess.VenueManager {
		http.Error(w, "venue manager account required", http.StatusForbidden)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in := venueInputFromForm(r)
	renderErr := func(msg string) {
		d := s.base(r, "Venue")
		d.Form = formValues(r, "name", "description", "price", "maxGuests", "mediaUrl", "city", "country")
		d.Venue = gateway.Venue{ID: id}
		d.Flash, d.FlashKind = msg, "error"
		s.render(w, "templates/venue_form.html", d)
	}
	if err := in.Validate(); err != nil {
		renderErr(err.Error())
		return
	}

	api := s.API.WithToken(sess.AccessToken)
	var (
		v   gateway.Venue
		err error
	)
	if id == "" {
		v, err = api.CreateVenue(r.Context(), in)
	} else {
		v, err = api.UpdateVenue(r.Context(), id, in)
	}
	if err != nil {
		renderErr(remoteMessage(err))
		return
	}
	http.Redirect(w, r, "/venues/"+v.ID, http.StatusFound)
}

func (s *Server) handleVenueDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.remote(r)
	if !ok {
		http.Redirect(w, r, "/connect", http.StatusFound)
		return
	}
	if err := s.API.WithToken(sess.AccessToken).DeleteVenue(r.Context(), r.PathValue("id")); err != nil {
		http.Error(w, remoteMessage(err), http.StatusBadGateway)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// --- helpers ---

// bookingForm parses the shared from/to/guests form fields.
func bookingForm(r *http.Request) (stay.Range, int, error) {
	if err := r.ParseForm(); err != nil {
		return stay.Range{}, 0, err
	}
	from, err := stay.ParseDate(r.FormValue("from"))
	if err != nil {
		return stay.Range{}, 0, fmt.Errorf("check-in: %w", err)
	}
	to, err := stay.ParseDate(r.FormValue("to"))
	if err != nil {
		return stay.Range{}, 0, fmt.Errorf("checkout: %w", err)
	}
	guests, err := strconv.Atoi(r.FormValue("guests"))
	if err != nil {
		return stay.Range{}, 0, fmt.Errorf("invalid guest count")
	}
	return stay.Range{From: from, To: to}, guests, nil
}

func venueInputFromForm(r *http.Request) gateway.VenueInput {
	price, _ := strconv.ParseFloat(r.FormValue("price"), 64)
	maxGuests, _ := strconv.Atoi(r.FormValue("maxGuests"))
	in := gateway.VenueInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Price:       price,
		MaxGuests:   maxGuests,
		Meta: gateway.Amenities{
			Wifi:      r.FormValue("wifi") == "on",
			Parking:   r.FormValue("parking") == "on",
			Breakfast: r.FormValue("breakfast") == "on",
			Pets:      r.FormValue("pets") == "on",
		},
	}
	if u := strings.TrimSpace(r.FormValue("mediaUrl")); u != "" {
		in.Media = []gateway.Media{{URL: u, Alt: in.Name}}
	}
	city := strings.TrimSpace(r.FormValue("city"))
	country := strings.TrimSpace(r.FormValue("country"))
	if city != "" || country != "" {
		in.Location = &gateway.Location{City: city, Country: country}
	}
	return in
}

func venueForm(v gateway.Venue) map[string]string {
	f := map[string]string{
		"name":        v.Name,
		"description": v.Description,
		"price":       strconv.FormatFloat(v.Price, 'f', -1, 64),
		"maxGuests":   strconv.Itoa(v.MaxGuests),
	}
	if len(v.Media) > 0 {
		f["mediaUrl"] = v.Media[0].URL
	}
	if v.Location != nil {
		f["city"] = v.Location.City
		f["country"] = v.Location.Country
	}
	for flag, on := range map[string]bool{
		"wifi":      v.Meta.Wifi,
		"parking":   v.Meta.Parking,
		"breakfast": v.Meta.Breakfast,
		"pets":      v.Meta.Pets,
	} {
		if on {
			f[flag] = "on"
		}
	}
	return f
}

func formValues(r *http.Request, keys ...string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[k] = r.FormValue(k)
	}
	return m
}

// remoteMessage keeps remote error text user-facing without the wrapper.
func remoteMessage(err error) string {
	var re *gateway.RemoteError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

// mutationMessage maps orchestrator errors to user-facing text.
func mutationMessage(err error) string {
	var pf *bookings.PartialFailure
	if errors.As(err, &pf) {
		return pf.Error()
	}
	var ve *bookings.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, bookings.ErrBusy) {
		return bookings.ErrBusy.Error()
	}
	return remoteMessage(err)
}

// flashKind grades errors: partial failures render loudest.
func flashKind(err error) string {
	var pf *bookings.PartialFailure
	if errors.As(err, &pf) {
		return "severe"
	}
	return "error"
}

var funcs = template.FuncMap{
	"nights": func(b gateway.Booking) int { return b.Range().Nights() },
	"total": func(b gateway.Booking) float64 {
		if b.Venue == nil {
			return 0
		}
		return float64(b.Range().Nights()) * b.Venue.Price
	},
	"daynum": func(d calendar.Day) int {
		_, _, n := d.Date.Date()
		return n
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.New("base.html").Funcs(funcs).ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	fmt.Printf("listening on %s\n", addr)
	return srv.ListenAndServe()
}
