package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sevenofnine/smartevent-bridge/internal/app"
	"github.com/sevenofnine/smartevent-bridge/internal/config"
	"github.com/sevenofnine/smartevent-bridge/internal/tray"
	"github.com/sevenofnine/smartevent-bridge/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level(cfg.LogLevel)}))
	logger.Info("starting smartevent-bridge", "version", version.Version, "api", cfg.APIBaseURL)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	hub, err := app.BuildHub(cfg, logger, reg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	tr := tray.New("SmartEvent Bridge", tray.Actions{
		Reload: func() {
			go func() {
				if err := hub.ReloadAll(ctx); err != nil {
					logger.Warn("event reload failed", "trigger", "tray", "err", err)
				}
			}()
		},
		Quit: cancel,
	})
	application := app.New(cfg, hub, tr, logger, app.WithGatherer(reg))
	return application.Run(ctx)
}

func level(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
