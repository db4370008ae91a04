package app

import (
	"context"
	"fmt"
	"os"

	"github.com/aatumaykin/quotebot/internal/app/builders"
	"github.com/aatumaykin/quotebot/internal/constants"
	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/engine"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/metrics"
	"github.com/aatumaykin/quotebot/internal/seed"
	"github.com/aatumaykin/quotebot/internal/workers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Initialize creates and starts every component except the background
// loops, which StartBackground launches. Partially created components are
// released by Shutdown.
func (a *App) Initialize(ctx context.Context) error {
	// 1. Create application context
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.mu.Lock()
	a.started = true
	a.mu.Unlock()

	// 2. Data directory
	if err := os.MkdirAll(a.config.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// 3. Store and tracking log
	st, trackingLog, err := builders.NewStoreBuilder(a.config, a.logger).Build(a.ctx)
	if err != nil {
		return err
	}
	a.store = st
	a.trackingLog = trackingLog

	// 4. Seed import
	if a.config.Seed.Path != "" {
		if _, err := seed.ImportFile(a.ctx, a.store, a.config.Seed.Path, a.config.Seed.Prune, a.logger); err != nil {
			a.logger.Warn("seed import finished with errors",
				logger.Field{Key: "path", Value: a.config.Seed.Path},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}

	// 5. Metrics
	var recorder engine.Recorder
	if a.config.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = metrics.InitPrometheusMetrics(metrics.Namespace, reg)
		a.metricsServer = metrics.NewServer(a.config.Metrics.Listen, reg, a.logger)
		recorder = a.metrics
	}

	// 6. Delivery sink
	sinkBuilder := builders.NewSinkBuilder(a.config, a.logger)
	if a.bot != nil {
		sinkBuilder.WithBot(a.bot)
	}
	sink, err := sinkBuilder.Build(a.ctx)
	if err != nil {
		return err
	}
	a.sink = sink

	// 7. Worker pool
	a.workerPool = workers.NewPool(a.config.Workers.PoolSize, a.config.Workers.QueueSize, a.logger)
	a.workerPool.Start()
	if a.metrics != nil {
		a.metrics.RegisterPool(metrics.Namespace, a.workerPool)
	}

	// 8. Cron scheduler
	cronStorage := cron.NewStorage(a.config.CronDir(), a.logger)
	scheduler, err := builders.NewCronBuilder(a.config, a.logger, a.workerPool, cronStorage).Build()
	if err != nil {
		return err
	}
	a.cronScheduler = scheduler

	// 9. Engine and reconciler
	selector := engine.NewSelector(a.trackingLog, a.logger, engine.WithSelectorRecorder(recorder))
	oneShot := engine.NewOneShot(a.cronScheduler, a.config.Engine.MinDelay(), a.config.Engine.MaxDelay(), a.logger)
	a.engine = engine.New(a.store, a.trackingLog, selector, oneShot, a.sink, a.logger, engine.Options{
		MarkUsed: a.config.Engine.MarkUsed,
		Recorder: recorder,
	})
	a.workerPool.Register(constants.TaskTypeDelivery, a.executeDelivery)

	if err := a.cronScheduler.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start cron scheduler: %w", err)
	}
	if pending := a.cronScheduler.PendingDeliveries(); len(pending) > 0 {
		a.logger.Info("deliveries pending after restart",
			logger.Field{Key: "count", Value: len(pending)},
			logger.Field{Key: "next", Value: pending[0].FireAt})
	}

	a.reconciler = engine.NewReconciler(a.store, a.cronScheduler, a.engine.Fire,
		a.config.Engine.ReconcileInterval(), a.logger, recorder)

	// 10. Seed watcher
	if a.config.Seed.Watch && a.config.Seed.Path != "" {
		a.seedWatcher = seed.NewWatcher(a.config.Seed.Path, a.store, a.config.Seed.Prune, a.reconciler.Sync, a.logger)
	}

	return nil
}

// StartBackground launches the reconciliation loop, the metrics server and
// the seed watcher.
func (a *App) StartBackground() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.reconciler.Run(a.ctx)
	}()

	if a.metricsServer != nil {
		if err := a.metricsServer.Start(); err != nil {
			a.logger.Error("failed to start metrics server", err,
				logger.Field{Key: "listen", Value: a.config.Metrics.Listen})
		}
	}

	if a.seedWatcher != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.seedWatcher.Run(a.ctx); err != nil {
				a.logger.Error("seed watcher stopped", err,
					logger.Field{Key: "path", Value: a.config.Seed.Path})
			}
		}()
	}
}

// executeDelivery is the worker pool executor for delivery tasks.
func (a *App) executeDelivery(ctx context.Context, task workers.Task) (string, error) {
	d, ok := task.Payload.(cron.Delivery)
	if !ok {
		return "", fmt.Errorf("invalid delivery payload: %T", task.Payload)
	}
	if err := a.engine.Deliver(ctx, d); err != nil {
		return "", err
	}
	return d.ID, nil
}
