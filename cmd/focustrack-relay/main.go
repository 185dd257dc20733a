package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"github.com/coder/quartz"
	"github.com/gin-gonic/gin"

	"focustrack/internal/config"
	"focustrack/internal/relay"
)

func main() {
	configPath := flag.String("config", "", "YAML config path")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	dbPath := flag.String("db", "", "SQLite path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *dbPath != "" {
		cfg.RelayDBPath = *dbPath
	}

	log := slog.Make(sloghuman.Sink(os.Stderr)).Named("relay")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := relay.Open(ctx, cfg.RelayDBPath)
	if err != nil {
		fatal(err)
	}
	defer st.Close() //nolint:errcheck

	if err := relay.ApplyMigrations(ctx, st.DB()); err != nil {
		fatal(err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := relay.NewRouter(relay.Deps{Store: st, Clock: quartz.NewReal(), Log: log})

	log.Info(ctx, "listening", slog.F("addr", cfg.ListenAddr), slog.F("db", cfg.RelayDBPath))
	if err := relay.Run(ctx, cfg.ListenAddr, router); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	_, _ = fmt.Fprintf(os.Stderr, "focustrack-relay: %v\n", err)
	os.Exit(1)
}
