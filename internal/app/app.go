// Package app provides the main application structure for quotebot.
// It wires the store, the tracking log, the cron scheduler, the worker
// pool, the engine and its reconciler, the delivery sink, metrics and the
// seed watcher, and manages their lifecycle.
package app

import (
	"context"
	"sync"

	"github.com/aatumaykin/quotebot/internal/channels/telegram"
	"github.com/aatumaykin/quotebot/internal/config"
	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/engine"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/metrics"
	"github.com/aatumaykin/quotebot/internal/seed"
	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/aatumaykin/quotebot/internal/tracking"
	"github.com/aatumaykin/quotebot/internal/workers"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config *config.Config
	logger *logger.Logger

	// Persistence
	store       *store.SQLite
	trackingLog tracking.Log

	// Scheduling and background execution
	cronScheduler *cron.Scheduler
	workerPool    *workers.WorkerPool

	// Engine
	engine     *engine.Engine
	reconciler *engine.Reconciler
	sink       engine.DeliverySink

	// Optional services
	metrics       *metrics.PrometheusMetrics
	metricsServer *metrics.Server
	seedWatcher   *seed.Watcher

	// Test hooks
	bot telegram.BotInterface

	// Context management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Thread-safety
	mu      sync.RWMutex
	started bool
}

// Option configures an App.
type Option func(*App)

// WithBot makes the app send through bot instead of connecting to Telegram.
func WithBot(bot telegram.BotInterface) Option {
	return func(a *App) {
		a.bot = bot
	}
}

// New creates a new App instance with the provided configuration and logger.
// Components are created in Initialize.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) *App {
	a := &App{
		config: cfg,
		logger: log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run initializes the application, starts the reconciliation loop and
// blocks until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		a.shutdownQuietly()
		return err
	}

	a.StartBackground()
	a.logger.Info("application is running")

	<-ctx.Done()

	return a.Shutdown()
}

// Sink returns the delivery sink in use.
func (a *App) Sink() engine.DeliverySink {
	return a.sink
}

// Scheduler returns the cron scheduler.
func (a *App) Scheduler() *cron.Scheduler {
	return a.cronScheduler
}

// Reconciler returns the schedule reconciler.
func (a *App) Reconciler() *engine.Reconciler {
	return a.reconciler
}

func (a *App) shutdownQuietly() {
	if err := a.Shutdown(); err != nil {
		a.logger.Error("shutdown after failed start", err)
	}
}
