// Package cron provides the job scheduler behind schedule reconciliation.
// It uses robfig/cron/v3 for recurring jobs, which are grouped and named,
// and for one-shot deliveries, which are persisted to JSONL storage and
// handed to a worker pool when they fire.
package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aatumaykin/quotebot/internal/constants"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const compactionJobName = "compact-deliveries"

// Scheduler manages recurring jobs and one-shot deliveries.
type Scheduler struct {
	cron       *cron.Cron
	logger     *logger.Logger
	cronLogger cronLogger
	workerPool WorkerPool
	storage    *Storage
	location   *time.Location
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	mu         sync.RWMutex

	jobs    map[string]Job
	entries map[string]cron.EntryID // Job.Key() -> entry
	pending map[string]pendingDelivery
}

type pendingDelivery struct {
	delivery Delivery
	entryID  cron.EntryID
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the time zone recurring specs are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewScheduler creates a scheduler. storage may be nil, in which case
// deliveries are kept in memory only.
func NewScheduler(log *logger.Logger, workerPool WorkerPool, storage *Storage, opts ...Option) *Scheduler {
	s := &Scheduler{
		logger:     log,
		cronLogger: newCronLogger(log),
		workerPool: workerPool,
		storage:    storage,
		location:   time.Local,
		now:        time.Now,
		ctx:        context.Background(),
		jobs:       make(map[string]Job),
		entries:    make(map[string]cron.EntryID),
		pending:    make(map[string]pendingDelivery),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(
		cron.WithParser(newParser()),
		cron.WithLocation(s.location),
		cron.WithLogger(s.cronLogger),
		cron.WithChain(cron.Recover(s.cronLogger)),
	)

	return s
}

// Start starts the cron loop, restores pending deliveries from storage and
// registers the daily compaction of executed deliveries.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		logger.Field{Key: "location", Value: s.location.String()})

	s.fireOverdue()

	if s.storage != nil {
		s.restorePending()

		if _, ok := s.GetJob(constants.SystemJobGroup, compactionJobName); !ok {
			compaction := Job{Name: compactionJobName, Group: constants.SystemJobGroup, Schedule: constants.CompactionSpec}
			if err := s.CreateRecurring(compaction, s.CleanupExecuted); err != nil {
				s.logger.Error("failed to register delivery compaction", err)
			}
		}
	}

	return nil
}

// fireOverdue fires deliveries armed while the loop was stopped whose time
// has passed in the meantime; the cron loop would never run them.
func (s *Scheduler) fireOverdue() {
	now := s.now()

	s.mu.RLock()
	var overdue []string
	for id, p := range s.pending {
		if p.entryID != 0 && !now.Before(p.delivery.FireAt) {
			overdue = append(overdue, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range overdue {
		go s.fire(id)
	}
}

// Stop stops the cron loop and waits for running jobs to return.
// Pending deliveries stay in storage and are restored on the next Start.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("cron scheduler stopped")
	return nil
}

// IsStarted returns true if the scheduler is started
func (s *Scheduler) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// CreateRecurring registers run under job.Group/job.Name on job.Schedule.
// Runs of one job never overlap: a fire that arrives while the previous
// run is still going is skipped. A panicking run is recovered inside the
// skip guard, so later fires still run.
func (s *Scheduler) CreateRecurring(job Job, run func()) error {
	schedule, err := ParseSpec(job.Schedule)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := job.Key()
	if _, exists := s.jobs[key]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, key)
	}

	wrapped := cron.NewChain(cron.SkipIfStillRunning(s.cronLogger), cron.Recover(s.cronLogger)).Then(cron.FuncJob(run))
	entryID := s.cron.Schedule(schedule, wrapped)

	job.Tags = append([]string(nil), job.Tags...)
	s.jobs[key] = job
	s.entries[key] = entryID

	s.logger.Debug("recurring job added",
		logger.Field{Key: "job", Value: key},
		logger.Field{Key: "cron", Value: job.Schedule},
		logger.Field{Key: "entry_id", Value: entryID})

	return nil
}

// DeleteJob removes a recurring job. Deliveries it already created are kept.
func (s *Scheduler) DeleteJob(group, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := jobKey(group, name)
	entryID, exists := s.entries[key]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, key)
	}

	s.cron.Remove(entryID)
	delete(s.entries, key)
	delete(s.jobs, key)

	s.logger.Debug("recurring job removed",
		logger.Field{Key: "job", Value: key},
		logger.Field{Key: "entry_id", Value: entryID})

	return nil
}

// GetJob retrieves a live job.
func (s *Scheduler) GetJob(group, name string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobKey(group, name)]
	return job, ok
}

// ListJobsInGroup returns the live jobs of group ordered by name.
func (s *Scheduler) ListJobsInGroup(group string) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if job.Group == group {
			jobs = append(jobs, job)
		}
	}
	sortJobs(jobs)
	return jobs
}

// NextRun returns the next fire time of a live job.
func (s *Scheduler) NextRun(group, name string) (time.Time, bool) {
	s.mu.RLock()
	entryID, ok := s.entries[jobKey(group, name)]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(entryID).Next, true
}

// ScheduleOnce persists d and arranges for it to be submitted to the worker
// pool at d.FireAt. A delivery whose time has already passed fires
// immediately. The returned delivery carries the assigned id.
func (s *Scheduler) ScheduleOnce(d Delivery) (Delivery, error) {
	if d.FireAt.IsZero() {
		return Delivery{}, fmt.Errorf("delivery has no fire time")
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Executed = false
	d.ExecutedAt = nil

	if s.storage != nil {
		if err := s.storage.Append(d); err != nil {
			return Delivery{}, fmt.Errorf("failed to persist delivery: %w", err)
		}
	}

	s.arm(d)

	s.logger.Info("delivery scheduled",
		logger.Field{Key: "delivery_id", Value: d.ID},
		logger.Field{Key: "schedule", Value: d.Schedule},
		logger.Field{Key: "quote_id", Value: d.QuoteID},
		logger.Field{Key: "fire_at", Value: d.FireAt})

	return d, nil
}

// PendingDeliveries returns deliveries that have not fired yet, soonest first.
func (s *Scheduler) PendingDeliveries() []Delivery {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Delivery, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.delivery)
	}
	sortDeliveries(out)
	return out
}

// arm registers d with the cron loop, or fires it right away when overdue.
func (s *Scheduler) arm(d Delivery) {
	if !s.now().Before(d.FireAt) {
		s.mu.Lock()
		s.pending[d.ID] = pendingDelivery{delivery: d}
		s.mu.Unlock()
		go s.fire(d.ID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entryID := s.cron.Schedule(onceSchedule{at: d.FireAt}, cron.FuncJob(func() { s.fire(d.ID) }))
	s.pending[d.ID] = pendingDelivery{delivery: d, entryID: entryID}
}

// fire submits the delivery once and marks it executed in storage.
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	ctx := s.ctx
	s.mu.Unlock()

	if !ok {
		return
	}
	if p.entryID != 0 {
		s.cron.Remove(p.entryID)
	}

	s.executeDelivery(ctx, p.delivery)

	if s.storage != nil {
		if err := s.storage.MarkExecuted(id, s.now()); err != nil {
			s.logger.Error("failed to mark delivery as executed", err,
				logger.Field{Key: "delivery_id", Value: id})
		}
	}
}

// executeDelivery submits a delivery to the worker pool
func (s *Scheduler) executeDelivery(ctx context.Context, d Delivery) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("delivery panic recovered", fmt.Errorf("panic: %v", r),
				logger.Field{Key: "delivery_id", Value: d.ID})
		}
	}()

	if s.workerPool == nil {
		s.logger.Error("delivery execution failed: worker pool is not configured",
			fmt.Errorf("worker pool not available"),
			logger.Field{Key: "delivery_id", Value: d.ID})
		return
	}

	// A delivery handed to the pool is finished even if the scheduler stops.
	task := Task{
		ID:      "delivery_" + d.ID,
		Type:    constants.TaskTypeDelivery,
		Payload: d,
		Context: context.WithoutCancel(ctx),
	}
	s.workerPool.Submit(task)

	s.logger.Debug("delivery submitted to worker pool",
		logger.Field{Key: "delivery_id", Value: d.ID},
		logger.Field{Key: "schedule", Value: d.Schedule},
		logger.Field{Key: "quote_id", Value: d.QuoteID})
}

// restorePending re-arms deliveries that were pending when the process stopped.
func (s *Scheduler) restorePending() {
	deliveries, err := s.storage.Load()
	if err != nil {
		s.logger.Error("failed to load pending deliveries", err)
		return
	}

	restored := 0
	for _, d := range deliveries {
		if d.Executed {
			continue
		}
		s.mu.RLock()
		_, known := s.pending[d.ID]
		s.mu.RUnlock()
		if known {
			continue
		}
		s.arm(d)
		restored++
	}

	if restored > 0 {
		s.logger.Info("pending deliveries restored",
			logger.Field{Key: "count", Value: restored})
	}
}

// CleanupExecuted removes executed deliveries from storage.
func (s *Scheduler) CleanupExecuted() {
	if s.storage == nil {
		return
	}
	if _, err := s.storage.RemoveExecuted(); err != nil {
		s.logger.Error("failed to remove executed deliveries", err)
	}
}
