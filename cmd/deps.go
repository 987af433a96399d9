package cmd

import (
	"context"
	"fmt"

	"github.com/example/staybook/internal/auth"
	"github.com/example/staybook/internal/config"
	"github.com/example/staybook/internal/crypto"
	"github.com/example/staybook/internal/db"
	"github.com/example/staybook/internal/gateway"
	"github.com/example/staybook/internal/migrate"
	"github.com/example/staybook/internal/session"
)

// deps bundles the wiring every stateful command needs.
type deps struct {
	cfg      config.Config
	db       *db.DB
	auth     *auth.Store
	sessions *session.Store
	api      *gateway.Client
}

func openDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, err
	}
	aead, err := crypto.New(cfg.TokenEncKey)
	if err != nil {
		d.Close()
		return nil, err
	}
	return &deps{
		cfg:      cfg,
		db:       d,
		auth:     auth.NewStore(d, cfg.CookieHashKey, cfg.CookieBlockKey),
		sessions: session.NewStore(d, aead),
		api:      gateway.New(cfg.APIBaseURL, gateway.Credentials{APIKey: cfg.APIKey}),
	}, nil
}

func (d *deps) close() {
	d.db.Close()
}

// remoteSession resolves a local username to its stored remote session and a
// gateway client bound to its token.
func (d *deps) remoteSession(ctx context.Context, username string) (session.Session, *gateway.Client, error) {
	uid, err := d.auth.UserIDByName(ctx, username)
	if err != nil {
		return session.Session{}, nil, fmt.Errorf("local user %q: %w", username, err)
	}
	sess, err := d.sessions.Get(ctx, uid)
	if err != nil {
		return session.Session{}, nil, fmt.Errorf("no remote session for %q; run `staybook login --user %s` first: %w", username, username, err)
	}
	return sess, d.api.WithToken(sess.AccessToken), nil
}
