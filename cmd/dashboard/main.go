package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	flag "github.com/spf13/pflag"

	"legends/internal/config"
	"legends/internal/dashboard"
	"legends/internal/signals"
)

func main() {
	addr := flag.String("addr", "", "listen address (default DASHBOARD_ADDR or :8050)")
	path := flag.String("file", "", "joined mastery file (default {DATA_DIR}/mastery/final.csv)")
	refresh := flag.Duration("refresh", 0, "reload interval (default DASHBOARD_REFRESH or 1s)")
	envFiles := flag.StringSlice("env-file", nil, "env files to try in order (default .env, ../.env)")
	verbose := flag.BoolP("verbose", "v", false, "set debug logging level")
	flag.Parse()

	log := newLogger(*verbose)
	slog.SetDefault(log)

	cfg, err := config.Load(*envFiles...)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.DashboardAddr = *addr
	}
	if *path == "" {
		*path = cfg.Mastery.Final
	}
	if *refresh > 0 {
		cfg.DashboardRefresh = *refresh
	}

	ctx, stop := signals.SetupSignalHandler(context.Background(), log, nil)
	srv := dashboard.New(dashboard.Config{
		Path:    *path,
		Refresh: cfg.DashboardRefresh,
		Logger:  log,
	})
	err = srv.ListenAndServe(ctx, cfg.DashboardAddr)
	stop()
	if err != nil {
		log.Error("dashboard stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
