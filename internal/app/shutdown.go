package app

import (
	"context"
	"errors"
	"time"
)

const metricsShutdownTimeout = 5 * time.Second

// Shutdown performs graceful shutdown of all components.
// It stops the application in the following order:
//  1. Cancels the application context, stopping the reconciler and seed watcher
//  2. Stops the cron scheduler, so no new deliveries are submitted
//  3. Stops the worker pool, letting queued deliveries finish
//  4. Stops the metrics server
//  5. Closes the store
//
// The method is thread-safe and can be called more than once.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	var errs []error

	if a.cronScheduler != nil && a.cronScheduler.IsStarted() {
		if err := a.cronScheduler.Stop(); err != nil {
			a.logger.Error("failed to stop cron scheduler", err)
			errs = append(errs, err)
		}
	}

	if a.workerPool != nil {
		a.workerPool.Stop()
	}

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to stop metrics server", err)
			errs = append(errs, err)
		}
		cancel()
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close store", err)
			errs = append(errs, err)
		}
	}

	a.started = false
	a.logger.Info("application shutdown complete")

	return errors.Join(errs...)
}
