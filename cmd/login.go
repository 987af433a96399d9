package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/example/staybook/internal/session"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var user, email, password string

	c := &cobra.Command{
		Use:   "login",
		Short: "Authenticate a local user against the remote booking API and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			uid, err := d.auth.UserIDByName(ctx, user)
			if err != nil {
				return fmt.Errorf("local user %q: %w", user, err)
			}

			profile, token, err := d.api.Login(ctx, email, password)
			if err != nil {
				return err
			}
			err = d.sessions.Init(ctx, session.Session{
				UserID:       uid,
				ProfileName:  profile.Name,
				Email:        profile.Email,
				VenueManager: profile.VenueManager,
				AccessToken:  token,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "logged in as %s (venue manager: %v)\n", profile.Name, profile.VenueManager)
			return nil
		},
	}

	c.Flags().StringVar(&user, "user", "", "local username the session belongs to")
	c.Flags().StringVar(&email, "email", "", "remote account email")
	c.Flags().StringVar(&password, "password", "", "remote account password")
	_ = c.MarkFlagRequired("user")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}

func newLogoutCmd() *cobra.Command {
	var user string

	c := &cobra.Command{
		Use:   "logout",
		Short: "Forget a local user's remote session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			uid, err := d.auth.UserIDByName(ctx, user)
			if err != nil {
				return fmt.Errorf("local user %q: %w", user, err)
			}
			if err := d.sessions.Teardown(ctx, uid); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "logged out")
			return nil
		},
	}

	c.Flags().StringVar(&user, "user", "", "local username")
	_ = c.MarkFlagRequired("user")
	return c
}
