package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("listen = %q, want default", cfg.Listen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("config mode = %o, want 0600", got)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = ":9090"
	cfg.DBPath = "/data/tend.db"
	cfg.Push.VAPIDPublicKey = "pub"
	cfg.Push.VAPIDPrivateKey = "priv"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got.Listen != ":9090" || got.DBPath != "/data/tend.db" {
		t.Errorf("got %+v, want saved values", got)
	}
	if got.Push.VAPIDPrivateKey != "priv" {
		t.Error("push keys not round-tripped")
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: \":7070\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Listen != ":7070" {
		t.Errorf("listen = %q, want :7070", cfg.Listen)
	}
	if cfg.DBPath == "" || cfg.LogLevel == "" {
		t.Errorf("defaults not filled in: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEND_LISTEN", ":6060")
	t.Setenv("TEND_VAPID_PUBLIC_KEY", "env-pub")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Listen != ":6060" {
		t.Errorf("listen = %q, want env override", cfg.Listen)
	}
	if cfg.Push.VAPIDPublicKey != "env-pub" {
		t.Errorf("vapid public key = %q, want env override", cfg.Push.VAPIDPublicKey)
	}
}
