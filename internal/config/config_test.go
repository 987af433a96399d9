package config

import (
	"encoding/base64"
	"testing"
)

func key(t *testing.T, n int) string {
	t.Helper()
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(b)
}

func setAll(t *testing.T) {
	t.Setenv("STAYBOOK_API_KEY", "k")
	t.Setenv("COOKIE_HASH_KEY", key(t, 32))
	t.Setenv("COOKIE_BLOCK_KEY", key(t, 32))
	t.Setenv("TOKEN_ENC_KEY", key(t, 32))
}

func TestFromEnv(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		setAll(t)
		cfg, err := FromEnv()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.ListenAddr != ":8080" {
			t.Errorf("ListenAddr = %q", cfg.ListenAddr)
		}
		if len(cfg.TokenEncKey) != 32 {
			t.Errorf("TokenEncKey len = %d", len(cfg.TokenEncKey))
		}
	})

	t.Run("MissingAPIKey", func(t *testing.T) {
		setAll(t)
		t.Setenv("STAYBOOK_API_KEY", "")
		if _, err := FromEnv(); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("ShortTokenKey", func(t *testing.T) {
		setAll(t)
		t.Setenv("TOKEN_ENC_KEY", key(t, 16))
		if _, err := FromEnv(); err == nil {
			t.Error("expected error for non-32-byte key")
		}
	})
}
