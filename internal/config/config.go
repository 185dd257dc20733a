package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath           string
	RelayURL         string
	DeviceName       string
	PollInterval     time.Duration
	SyncInterval     time.Duration
	SyncStartupDelay time.Duration
	IdleThreshold    time.Duration
	ProbeTimeout     time.Duration
	RequestTimeout   time.Duration
	PushBatchLimit   int

	// Relay server side.
	ListenAddr  string
	RelayDBPath string
}

func Default() Config {
	return Config{
		DBPath:           defaultDBPath("focustrack.db"),
		RelayURL:         "http://localhost:8080",
		DeviceName:       defaultDeviceName(),
		PollInterval:     5 * time.Second,
		SyncInterval:     60 * time.Second,
		SyncStartupDelay: 5 * time.Second,
		IdleThreshold:    120 * time.Second,
		ProbeTimeout:     3 * time.Second,
		RequestTimeout:   10 * time.Second,
		PushBatchLimit:   100,
		ListenAddr:       ":8080",
		RelayDBPath:      defaultDBPath("relay.db"),
	}
}

type fileConfig struct {
	DBPath           *string `yaml:"db_path"`
	RelayURL         *string `yaml:"relay_url"`
	DeviceName       *string `yaml:"device_name"`
	PollInterval     *string `yaml:"poll_interval"`
	SyncInterval     *string `yaml:"sync_interval"`
	SyncStartupDelay *string `yaml:"sync_startup_delay"`
	IdleThreshold    *string `yaml:"idle_threshold"`
	ProbeTimeout     *string `yaml:"probe_timeout"`
	RequestTimeout   *string `yaml:"request_timeout"`
	PushBatchLimit   *int    `yaml:"push_batch_limit"`
	ListenAddr       *string `yaml:"listen_addr"`
	RelayDBPath      *string `yaml:"relay_db_path"`
}

// Load returns the defaults overlaid with the YAML file at path. A missing
// path (or an empty one) is not an error; defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.RelayURL != nil {
		cfg.RelayURL = *fc.RelayURL
	}
	if fc.DeviceName != nil {
		cfg.DeviceName = *fc.DeviceName
	}
	if fc.PushBatchLimit != nil {
		cfg.PushBatchLimit = *fc.PushBatchLimit
	}
	if fc.ListenAddr != nil {
		cfg.ListenAddr = *fc.ListenAddr
	}
	if fc.RelayDBPath != nil {
		cfg.RelayDBPath = *fc.RelayDBPath
	}
	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"poll_interval", fc.PollInterval, &cfg.PollInterval},
		{"sync_interval", fc.SyncInterval, &cfg.SyncInterval},
		{"sync_startup_delay", fc.SyncStartupDelay, &cfg.SyncStartupDelay},
		{"idle_threshold", fc.IdleThreshold, &cfg.IdleThreshold},
		{"probe_timeout", fc.ProbeTimeout, &cfg.ProbeTimeout},
		{"request_timeout", fc.RequestTimeout, &cfg.RequestTimeout},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return cfg, nil
}

func defaultDBPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".local", "state", "focustrack", name)
}

func defaultDeviceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "unknown-device"
	}
	return host
}
