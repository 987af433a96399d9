package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/staybook/internal/web"
	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking-site web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer d.close()

			if err := d.db.Ping(ctx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}

			ws := &web.Server{
				Auth:     d.auth,
				Sessions: d.sessions,
				API:      d.api,
				BaseURL:  d.cfg.BaseURL,
			}
			return web.Start(ctx, d.cfg.ListenAddr, ws.Routes())
		},
	}
	return cmd
}
