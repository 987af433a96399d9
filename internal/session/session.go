// Package session stores each local user's remote API session: the profile
// identity plus its access token, encrypted at rest. A session has an
// explicit lifecycle (Init on remote login, Teardown on logout) instead of
// any process-wide login state.
package session

import (
	"context"

	"github.com/example/staybook/internal/crypto"
	"github.com/example/staybook/internal/db"
)

// Session is one authenticated remote identity.
type Session struct {
	UserID       int64
	ProfileName  string
	Email        string
	VenueManager bool
	AccessToken  string
}

type Store struct {
	db   *db.DB
	aead *crypto.AEAD
}

func NewStore(d *db.DB, aead *crypto.AEAD) *Store {
	return &Store{db: d, aead: aead}
}

// Init records a fresh remote session for the user, replacing any previous
// one.
func (s *Store) Init(ctx context.Context, sess Session) error {
	enc, err := s.aead.EncryptToString(sess.AccessToken)
	if err != nil {
		return err
	}
	return s.db.Exec(ctx, `
INSERT INTO remote_sessions(user_id, profile_name, email, venue_manager, token_enc)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id) DO UPDATE
SET profile_name=$2, email=$3, venue_manager=$4, token_enc=$5, updated_at=now()`,
		sess.UserID, sess.ProfileName, sess.Email, sess.VenueManager, enc)
}

// Get returns the user's remote session with the token decrypted.
// db.ErrNotFound means the user is not logged in to the remote API.
func (s *Store) Get(ctx context.Context, userID int64) (Session, error) {
	sess := Session{UserID: userID}
	var enc string
	err := s.db.QueryRow(ctx, `
SELECT profile_name, email, venue_manager, token_enc
FROM remote_sessions WHERE user_id=$1`, userID).
		Scan(&sess.ProfileName, &sess.Email, &sess.VenueManager, &enc)
	if err != nil {
		return Session{}, db.WrapNotFound(err)
	}
	sess.AccessToken, err = s.aead.DecryptString(enc)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// SetVenueManager mirrors a remote venue-manager toggle into the stored
// session.
func (s *Store) SetVenueManager(ctx context.Context, userID int64, manager bool) error {
	return s.db.Exec(ctx, `
UPDATE remote_sessions SET venue_manager=$2, updated_at=now() WHERE user_id=$1`, userID, manager)
}

// Teardown forgets the user's remote session.
func (s *Store) Teardown(ctx context.Context, userID int64) error {
	return s.db.Exec(ctx, `DELETE FROM remote_sessions WHERE user_id=$1`, userID)
}
