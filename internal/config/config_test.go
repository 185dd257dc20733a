package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.RelayURL != def.RelayURL || cfg.PollInterval != def.PollInterval {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
relay_url: https://relay.example.com
device_name: desk
poll_interval: 2s
sync_interval: 5m
idle_threshold: 90s
push_batch_limit: 25
listen_addr: ":9090"
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RelayURL != "https://relay.example.com" {
		t.Fatalf("unexpected relay url: %q", cfg.RelayURL)
	}
	if cfg.DeviceName != "desk" {
		t.Fatalf("unexpected device name: %q", cfg.DeviceName)
	}
	if cfg.PollInterval != 2*time.Second || cfg.SyncInterval != 5*time.Minute || cfg.IdleThreshold != 90*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.PushBatchLimit != 25 {
		t.Fatalf("unexpected batch limit: %d", cfg.PushBatchLimit)
	}
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	// Keys absent from the file keep their defaults.
	if cfg.ProbeTimeout != Default().ProbeTimeout {
		t.Fatalf("expected default probe timeout, got %v", cfg.ProbeTimeout)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: soon\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for bad duration")
	}
}
