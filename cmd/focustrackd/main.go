package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"github.com/coder/quartz"

	"focustrack/internal/config"
	"focustrack/internal/detector"
	"focustrack/internal/store"
	"focustrack/internal/syncer"
	"focustrack/internal/sysquery"
	"focustrack/internal/tracker"
)

const sysQueryTimeout = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "YAML config path")
	dbPath := flag.String("db", "", "SQLite path (overrides config)")
	relayURL := flag.String("relay", "", "relay base URL (overrides config)")
	deviceName := flag.String("device-name", "", "device display name (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *relayURL != "" {
		cfg.RelayURL = *relayURL
	}
	if *deviceName != "" {
		cfg.DeviceName = *deviceName
	}

	log := slog.Make(sloghuman.Sink(os.Stderr))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		fatal(err)
	}
	defer st.Close() //nolint:errcheck

	if err := store.ApplyMigrations(ctx, st.DB()); err != nil {
		fatal(err)
	}

	clock := quartz.NewReal()
	exec := sysquery.NewExecutor(sysQueryTimeout)

	var input detector.InputMonitor = detector.NopInputMonitor{}
	if detector.X11InputAvailable() {
		input = detector.NewX11InputMonitor(exec)
	} else {
		log.Warn(ctx, "input sampling unavailable, idle detection disabled")
	}
	det := detector.New(detector.NopEventSource{}, input, detector.NopAssertionChecker{}, cfg.IdleThreshold, log.Named("detector"))

	var focus tracker.FocusSource = unavailableFocusSource{}
	if tracker.X11Available() {
		focus = tracker.NewX11FocusSource(exec)
	} else {
		log.Warn(ctx, "focus capture unavailable, sessions will not be recorded")
	}

	tr := tracker.New(st, focus, det, clock, cfg.PollInterval, log.Named("tracker"))
	go tr.Run(ctx)

	sync, err := syncer.New(ctx, st, syncer.Config{
		BaseURL:        cfg.RelayURL,
		DeviceName:     cfg.DeviceName,
		Interval:       cfg.SyncInterval,
		StartupDelay:   cfg.SyncStartupDelay,
		ProbeTimeout:   cfg.ProbeTimeout,
		RequestTimeout: cfg.RequestTimeout,
		BatchLimit:     cfg.PushBatchLimit,
	}, clock, log.Named("sync"))
	if err != nil {
		fatal(err)
	}

	log.Info(ctx, "focustrackd started",
		slog.F("db", cfg.DBPath),
		slog.F("relay", cfg.RelayURL),
		slog.F("device_id", sync.DeviceID()))
	sync.Run(ctx)
}

type unavailableFocusSource struct{}

func (unavailableFocusSource) FrontmostWindow(context.Context) (tracker.Focus, error) {
	return tracker.Focus{}, tracker.ErrFocusUnavailable
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "focustrackd: %v\n", err)
	os.Exit(1)
}
