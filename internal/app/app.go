package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/sevenofnine/smartevent-bridge/internal/api"
	"github.com/sevenofnine/smartevent-bridge/internal/config"
	"github.com/sevenofnine/smartevent-bridge/internal/eventapi"
	"github.com/sevenofnine/smartevent-bridge/internal/listview"
	"github.com/sevenofnine/smartevent-bridge/internal/observability"
	"github.com/sevenofnine/smartevent-bridge/internal/security"
	"github.com/sevenofnine/smartevent-bridge/internal/tray"
)

// Hub is the list engine driven by the application. *listview.Hub
// implements it.
type Hub interface {
	api.Backend
	ReloadAll(ctx context.Context) error
	Close()
}

type Application struct {
	cfg      config.Config
	hub      Hub
	tray     tray.App
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

type Option func(*Application)

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(a *Application) { a.gatherer = g }
}

func New(cfg config.Config, hub Hub, tr tray.App, logger *slog.Logger, opts ...Option) *Application {
	if logger == nil {
		logger = slog.Default()
	}
	if tr == nil {
		tr = tray.NewNoop()
	}
	a := &Application{cfg: cfg, hub: hub, tray: tr, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildHub wires the remote client, the surface profiles and the metrics
// into a hub. A nil reg skips metric registration.
func BuildHub(cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*listview.Hub, error) {
	if logger == nil {
		logger = slog.Default()
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}
	client := eventapi.New(eventapi.Options{
		BaseURL:      cfg.APIBaseURL,
		UsersBaseURL: cfg.UsersBaseURL,
		Timeout:      cfg.RequestTimeout,
		Logger:       logger,
	})
	return listview.NewHub(client, profiles, listview.HubOptions{
		Logger:  logger,
		Metrics: observability.NewMetrics(reg),
	})
}

// Run serves the API until ctx is done or a component fails. Every surface
// is loaded once at start; a failed load is logged and stays visible on the
// surface until the next reload.
func (a *Application) Run(ctx context.Context) error {
	server := api.New(api.Options{
		Backend: a.hub,
		Auth: security.BearerAuth{
			Enabled: a.cfg.RequireBearerToken,
			Token:   a.cfg.BearerToken,
		},
		Logger:   a.logger,
		Gatherer: a.gatherer,
	})
	defer a.hub.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	g.Go(func() error {
		a.reload(ctx, "startup")
		return nil
	})

	if a.cfg.BindAddress != "" {
		g.Go(func() error {
			if err := server.ServeTCP(ctx, a.cfg.BindAddress); err != nil {
				return fmt.Errorf("tcp server: %w", err)
			}
			return nil
		})
	}
	if a.cfg.UnixSocketPath != "" {
		g.Go(func() error {
			if err := server.ServeUnix(ctx, a.cfg.UnixSocketPath); err != nil {
				return fmt.Errorf("unix server: %w", err)
			}
			return nil
		})
	}
	if a.cfg.RefreshCron != "" {
		g.Go(func() error { return a.refresh(ctx) })
	}
	if a.cfg.EnableTray {
		g.Go(func() error {
			if err := a.tray.Run(ctx); err != nil {
				return fmt.Errorf("tray: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// refresh reloads every surface on the configured cron schedule. A tick
// that fires while the previous reload is still running is skipped.
func (a *Application) refresh(ctx context.Context) error {
	logger := cronLogger{log: a.logger.With("component", "refresh")}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(a.cfg.RefreshCron, func() { a.reload(ctx, "schedule") }); err != nil {
		return fmt.Errorf("refresh schedule: %w", err)
	}
	c.Start()
	a.logger.Info("periodic refresh enabled", "schedule", a.cfg.RefreshCron)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (a *Application) reload(ctx context.Context, trigger string) {
	if err := a.hub.ReloadAll(ctx); err != nil && ctx.Err() == nil {
		a.logger.Warn("event reload failed", "trigger", trigger, "err", err)
		return
	}
	a.logger.Debug("event reload finished", "trigger", trigger)
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "err", err)...)
}
