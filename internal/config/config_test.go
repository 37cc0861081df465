package config

import (
	"testing"
	"time"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("missing JWT_SECRET must be an error")
	}
}

func TestLoadEmbeddedDatabaseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PG_EMBEDDED_PATH", "")
	t.Setenv("PG_EMBEDDED_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.EmbeddedPath != ".sitereport/db" {
		t.Errorf("embedded path = %q, want .sitereport/db", cfg.Database.EmbeddedPath)
	}
	if cfg.Database.EmbeddedPort != 5433 {
		t.Errorf("embedded port = %d, want 5433", cfg.Database.EmbeddedPort)
	}
}

func TestLoadEmbeddedDatabaseOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PG_EMBEDDED_PATH", "/var/lib/sitereport/db")
	t.Setenv("PG_EMBEDDED_PORT", "5544")
	t.Setenv("PERSIST_DEBOUNCE_MS", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.EmbeddedPath != "/var/lib/sitereport/db" {
		t.Errorf("embedded path = %q", cfg.Database.EmbeddedPath)
	}
	if cfg.Database.EmbeddedPort != 5544 {
		t.Errorf("embedded port = %d, want 5544", cfg.Database.EmbeddedPort)
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Errorf("debounce = %s, want 250ms", cfg.Debounce)
	}
}
