package builders

import (
	"fmt"

	"github.com/aatumaykin/quotebot/internal/config"
	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/workers"
)

type CronBuilder struct {
	config      *config.Config
	logger      *logger.Logger
	workerPool  *workers.WorkerPool
	cronStorage *cron.Storage
}

func NewCronBuilder(cfg *config.Config, log *logger.Logger, wp *workers.WorkerPool, cs *cron.Storage) *CronBuilder {
	return &CronBuilder{
		config:      cfg,
		logger:      log,
		workerPool:  wp,
		cronStorage: cs,
	}
}

// Build creates the scheduler in the configured time zone. It is started
// separately, once the delivery executor is registered on the pool, because
// Start fires deliveries that became overdue while the process was down.
func (b *CronBuilder) Build() (*cron.Scheduler, error) {
	loc, err := b.config.Engine.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid engine timezone: %w", err)
	}

	return cron.NewScheduler(b.logger, newWorkerPoolAdapter(b.workerPool), b.cronStorage,
		cron.WithLocation(loc)), nil
}

type workerPoolAdapter struct {
	pool *workers.WorkerPool
}

func newWorkerPoolAdapter(pool *workers.WorkerPool) cron.WorkerPool {
	return &workerPoolAdapter{pool: pool}
}

func (a *workerPoolAdapter) Submit(task cron.Task) {
	a.pool.Submit(workers.Task{
		ID:      task.ID,
		Type:    task.Type,
		Payload: task.Payload,
		Context: task.Context,
	})
}
