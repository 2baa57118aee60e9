// Package app initializes and holds the long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/racekit/pacer/internal/api"
	"github.com/racekit/pacer/internal/clock/system"
	"github.com/racekit/pacer/internal/config"
	"github.com/racekit/pacer/internal/logging"
	"github.com/racekit/pacer/internal/notify"
	notifymem "github.com/racekit/pacer/internal/notify/memory"
	notifypubsub "github.com/racekit/pacer/internal/notify/pubsub"
	"github.com/racekit/pacer/internal/progress"
	"github.com/racekit/pacer/internal/progress/sinks"
	"github.com/racekit/pacer/internal/store"
	storemem "github.com/racekit/pacer/internal/store/memory"
	storepg "github.com/racekit/pacer/internal/store/postgres"
	"github.com/racekit/pacer/internal/supervisor"
)

const shutdownGrace = 10 * time.Second

// App wires the configured providers together and owns their lifecycles.
// It is initialized once at startup and passed to the components that need
// its services.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	repo     store.RunRepository
	notifier notify.Notifier
	hub      *progress.Hub
	sup      *supervisor.Supervisor
	server   *api.Server
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Repository exposes the configured run history repository.
func (a *App) Repository() store.RunRepository { return a.repo }

// Supervisor returns the runner supervisor.
func (a *App) Supervisor() *supervisor.Supervisor { return a.sup }

// Handler returns the HTTP handler serving the v1 API.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// New builds the full service graph from the configuration. It fails fast
// if any provider cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	logger.Info("initializing services")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	notifier, closer, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		repo.Close()
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	hub := progress.NewHub(progress.Config{
		BufferSize:    cfg.Progress.BufferSize,
		FlushCount:    cfg.Progress.FlushCount,
		FlushInterval: cfg.Progress.FlushInterval(),
		SinkTimeout:   cfg.Progress.SinkTimeout(),
		Logger:        logger,
	},
		sinks.NewLogSink(logger),
		promSink,
		sinks.NewStoreSink(repo, logger),
		sinks.NewNotifySink(notifier, logger),
	)

	sup := supervisor.New(system.New(), hub, logger)
	server := api.NewServer(sup, repo, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), cfg, logger)

	logger.Info("services initialized",
		zap.String("db_provider", cfg.DB.Provider),
		zap.String("notify_provider", cfg.Notify.Provider),
	)
	return &App{
		cfg:      cfg,
		logger:   logger,
		repo:     repo,
		notifier: withCloser(notifier, closer),
		hub:      hub,
		sup:      sup,
		server:   server,
	}, nil
}

// Close shuts the services down in reverse dependency order: supervisor
// first so no new events are produced, then the hub so buffered events
// drain into the sinks, then the providers behind them.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := a.sup.Shutdown(ctx); err != nil {
		a.logger.Warn("supervisor shutdown", zap.Error(err))
	}
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("progress hub shutdown", zap.Error(err))
	}
	if c, ok := a.notifier.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("notifier shutdown", zap.Error(err))
		}
	}
	a.repo.Close()
	_ = a.logger.Sync()
}

func newRepository(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.RunRepository, error) {
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		repo, err := storepg.New(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("initialize postgres repository: %w", err)
		}
		return repo, nil
	case "memory":
		logger.Info("using in-memory run repository")
		return storemem.New(), nil
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}
}

func newNotifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (notify.Notifier, func() error, error) {
	switch cfg.Notify.Provider {
	case "pubsub":
		logger.Info("connecting to pub/sub",
			zap.String("project", cfg.Notify.ProjectID),
			zap.String("topic", cfg.Notify.TopicID),
		)
		n, err := notifypubsub.Connect(ctx, cfg.Notify.ProjectID, cfg.Notify.TopicID)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize pubsub notifier: %w", err)
		}
		return n, n.Close, nil
	case "memory":
		logger.Info("using in-memory notifier")
		return notifymem.New(), nil, nil
	case "none":
		logger.Info("notifications disabled")
		return notify.Noop{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown notify provider: %s", cfg.Notify.Provider)
	}
}

// closableNotifier keeps the broker close function next to the notifier so
// App.Close can find it through the interface.
type closableNotifier struct {
	notify.Notifier
	closer func() error
}

func (c closableNotifier) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func withCloser(n notify.Notifier, closer func() error) notify.Notifier {
	if closer == nil {
		return n
	}
	return closableNotifier{Notifier: n, closer: closer}
}
