package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/example/staybook/internal/bookings"
	"github.com/example/staybook/internal/domain/stay"
	"github.com/spf13/cobra"
)

func newBookingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Manage your bookings",
	}
	cmd.AddCommand(newBookingListCmd())
	cmd.AddCommand(newBookingCreateCmd())
	cmd.AddCommand(newBookingCancelCmd())
	cmd.AddCommand(newBookingChangeCmd())
	return cmd
}

func parseRange(from, to string) (stay.Range, error) {
	f, err := stay.ParseDate(from)
	if err != nil {
		return stay.Range{}, fmt.Errorf("--from: %w", err)
	}
	t, err := stay.ParseDate(to)
	if err != nil {
		return stay.Range{}, fmt.Errorf("--to: %w", err)
	}
	return stay.Range{From: f, To: t}, nil
}

// orchestratorFor builds a mutation orchestrator over the user's remote
// session and primes it with the remote's current list.
func orchestratorFor(ctx context.Context, d *deps, user string) (*bookings.Orchestrator, error) {
	sess, api, err := d.remoteSession(ctx, user)
	if err != nil {
		return nil, err
	}
	o := bookings.New(api, sess.ProfileName)
	if err := o.Refresh(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func newBookingListCmd() *cobra.Command {
	var user string

	c := &cobra.Command{
		Use:   "list",
		Short: "List your bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			o, err := orchestratorFor(ctx, d, user)
			if err != nil {
				return err
			}
			for _, b := range o.Bookings() {
				venue := "?"
				if b.Venue != nil {
					venue = b.Venue.Name
				}
				fmt.Fprintf(os.Stdout, "id=%s venue=%q from=%s to=%s nights=%d guests=%d\n",
					b.ID, venue, b.From, b.To, b.Range().Nights(), b.Guests)
			}
			return nil
		},
	}

	c.Flags().StringVar(&user, "user", "", "local username")
	_ = c.MarkFlagRequired("user")
	return c
}

func newBookingCreateCmd() *cobra.Command {
	var (
		user    string
		venueID string
		from    string
		to      string
		guests  int
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Book a stay at a venue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			r, err := parseRange(from, to)
			if err != nil {
				return err
			}
			sess, api, err := d.remoteSession(ctx, user)
			if err != nil {
				return err
			}
			v, err := api.GetVenue(ctx, venueID, true)
			if err != nil {
				return err
			}

			o := bookings.New(api, sess.ProfileName)
			b, err := o.Create(ctx, v, r, guests)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "booked %s: %s to %s (%d nights, total %.2f)\n",
				b.ID, b.From, b.To, r.Nights(), float64(r.Nights())*v.Price)
			return nil
		},
	}

	c.Flags().StringVar(&user, "user", "", "local username")
	c.Flags().StringVar(&venueID, "venue-id", "", "venue id")
	c.Flags().StringVar(&from, "from", "", "check-in date YYYY-MM-DD")
	c.Flags().StringVar(&to, "to", "", "checkout date YYYY-MM-DD")
	c.Flags().IntVar(&guests, "guests", 2, "guest count")
	_ = c.MarkFlagRequired("user")
	_ = c.MarkFlagRequired("venue-id")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}

func newBookingCancelCmd() *cobra.Command {
	var user, id string

	c := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			o, err := orchestratorFor(ctx, d, user)
			if err != nil {
				return err
			}
			if err := o.Cancel(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "cancelled booking %s\n", id)
			return nil
		},
	}

	c.Flags().StringVar(&user, "user", "", "local username")
	c.Flags().StringVar(&id, "id", "", "booking id")
	_ = c.MarkFlagRequired("user")
	_ = c.MarkFlagRequired("id")
	return c
}

func newBookingChangeCmd() *cobra.Command {
	var (
		user   string
		id     string
		from   string
		to     string
		guests int
	)

	c := &cobra.Command{
		Use:   "change",
		Short: "Move a booking to new dates (cancels the old booking, books the new dates)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			r, err := parseRange(from, to)
			if err != nil {
				return err
			}
			o, err := orchestratorFor(ctx, d, user)
			if err != nil {
				return err
			}
			if guests == 0 {
				if b, ok := o.Get(id); ok {
					guests = b.Guests
				}
			}

			nb, err := o.Change(ctx, id, r, guests)
			var pf *bookings.PartialFailure
			if errors.As(err, &pf) {
				// The old booking is gone and the new one was not created;
				// this must be unmissable.
				fmt.Fprintf(os.Stderr, "WARNING: %v\n", pf)
				return errors.New("booking change failed after cancellation; rebook your stay")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "rebooked as %s: %s to %s\n", nb.ID, nb.From, nb.To)
			return nil
		},
	}

	c.Flags().StringVar(&user, "user", "", "local username")
	c.Flags().StringVar(&id, "id", "", "booking id to change")
	c.Flags().StringVar(&from, "from", "", "new check-in date YYYY-MM-DD")
	c.Flags().StringVar(&to, "to", "", "new checkout date YYYY-MM-DD")
	c.Flags().IntVar(&guests, "guests", 0, "new guest count (default: keep current)")
	_ = c.MarkFlagRequired("user")
	_ = c.MarkFlagRequired("id")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")
	return c
}
