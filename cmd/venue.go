package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/example/staybook/internal/calendar"
	"github.com/example/staybook/internal/config"
	"github.com/example/staybook/internal/domain/stay"
	"github.com/example/staybook/internal/gateway"
	"github.com/spf13/cobra"
)

// apiClient wires an unauthenticated gateway client; browsing venues needs
// no database or session.
func apiClient() (*gateway.Client, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	return gateway.New(cfg.APIBaseURL, gateway.Credentials{APIKey: cfg.APIKey}), nil
}

func newVenueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venue",
		Short: "Browse venues",
	}
	cmd.AddCommand(newVenueListCmd())
	cmd.AddCommand(newVenueGetCmd())
	return cmd
}

func newVenueListCmd() *cobra.Command {
	var (
		query string
		page  int
		limit int
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List or search venues",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}
			ctx := context.Background()

			var vs []gateway.Venue
			if query != "" {
				vs, err = api.SearchVenues(ctx, query)
			} else {
				vs, err = api.ListVenues(ctx, page, limit)
			}
			if err != nil {
				return err
			}
			for _, v := range vs {
				loc := ""
				if v.Location != nil && (v.Location.City != "" || v.Location.Country != "") {
					loc = fmt.Sprintf(" (%s %s)", v.Location.City, v.Location.Country)
				}
				fmt.Fprintf(os.Stdout, "id=%s price=%.2f max_guests=%d %q%s\n", v.ID, v.Price, v.MaxGuests, v.Name, loc)
			}
			return nil
		},
	}

	c.Flags().StringVar(&query, "query", "", "free-text search instead of paging")
	c.Flags().IntVar(&page, "page", 1, "page number")
	c.Flags().IntVar(&limit, "limit", 24, "page size")
	return c
}

func newVenueGetCmd() *cobra.Command {
	var (
		id           string
		showCalendar bool
		months       int
	)

	c := &cobra.Command{
		Use:   "get",
		Short: "Show a venue, optionally with its availability calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}
			ctx := context.Background()

			v, err := api.GetVenue(ctx, id, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s\n%s\n", v.Name, v.Description)
			fmt.Fprintf(os.Stdout, "price/night=%.2f max_guests=%d bookings=%d\n", v.Price, v.MaxGuests, len(v.Bookings))

			if !showCalendar {
				return nil
			}
			picker := calendar.NewPicker(stay.Today(time.Now()), v.BlockedIntervals(""))
			y, m, _ := time.Now().Date()
			for i := 0; i < months; i++ {
				grid := calendar.MonthGrid(y, m, picker.Disabled, stay.Range{})
				fmt.Fprintln(os.Stdout)
				fmt.Fprint(os.Stdout, grid.Format())
				m++
				if m > time.December {
					m = time.January
					y++
				}
			}
			return nil
		},
	}

	c.Flags().StringVar(&id, "id", "", "venue id")
	c.Flags().BoolVar(&showCalendar, "calendar", false, "render availability calendar ([n] = unavailable)")
	c.Flags().IntVar(&months, "months", 2, "months to render with --calendar")
	_ = c.MarkFlagRequired("id")
	return c
}
