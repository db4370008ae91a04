package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aatumaykin/quotebot/internal/constants"
	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/store"
)

// FireFunc is the body bound to each schedule's live job.
type FireFunc func(ctx context.Context, sched store.Schedule) error

// Reconciler keeps the live jobs of the schedules group equal to the
// schedules in the store: one job per schedule, same cron and tag set.
type Reconciler struct {
	store     ScheduleStore
	scheduler JobScheduler
	fire      FireFunc
	interval  time.Duration
	group     string
	logger    *logger.Logger
	recorder  Recorder

	mu sync.Mutex // serializes sync passes

	ctxMu   sync.RWMutex
	baseCtx context.Context
}

// NewReconciler creates a reconciler. Jobs it creates call fire.
func NewReconciler(st ScheduleStore, scheduler JobScheduler, fire FireFunc, interval time.Duration, l *logger.Logger, recorder Recorder) *Reconciler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Reconciler{
		store:     st,
		scheduler: scheduler,
		fire:      fire,
		interval:  interval,
		group:     constants.ScheduleJobGroup,
		logger:    l.With(logger.Field{Key: "component", Value: "reconciler"}),
		recorder:  recorder,
		baseCtx:   context.Background(),
	}
}

// Run syncs immediately and then on every interval until ctx is done.
// Ticks that arrive while a sync is running are dropped.
func (r *Reconciler) Run(ctx context.Context) {
	r.ctxMu.Lock()
	r.baseCtx = ctx
	r.ctxMu.Unlock()

	r.Sync(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.Sync(ctx)
		}
	}
}

// Sync performs one reconciliation pass. Calls are serialized.
func (r *Reconciler) Sync(ctx context.Context) {
	r.sync(ctx)
}

func (r *Reconciler) sync(ctx context.Context) (result ReconcileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	defer func() {
		result.Duration = time.Since(started)
		r.recorder.ObserveReconcile(result)
	}()

	schedules, err := r.store.ListSchedules(ctx)
	if err != nil {
		result.StoreError = true
		result.Live = len(r.scheduler.ListJobsInGroup(r.group))
		r.logger.ErrorCtx(ctx, "failed to read schedules, live jobs left unchanged",
			fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		return result
	}

	desired := make(map[string]store.Schedule, len(schedules))
	for _, s := range schedules {
		desired[s.Name] = s
	}

	live := make(map[string]cron.Job)
	for _, job := range r.scheduler.ListJobsInGroup(r.group) {
		live[job.Name] = job
	}

	names := make([]string, 0, len(desired))
	for name := range desired {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sched := desired[name]
		job, exists := live[name]

		switch {
		case !exists:
			if r.create(ctx, sched) {
				result.Created++
				r.logger.InfoCtx(ctx, "schedule job created",
					logger.Field{Key: "schedule", Value: name},
					logger.Field{Key: "cron", Value: sched.Cron},
					logger.Field{Key: "tags", Value: sched.Tags},
					r.nextRun(name))
			} else {
				result.Failed++
			}

		case job.Schedule != sched.Cron || !sameTags(job.Tags, sched.Tags):
			if err := r.scheduler.DeleteJob(r.group, name); err != nil {
				result.Failed++
				r.logger.ErrorCtx(ctx, "failed to delete outdated schedule job",
					fmt.Errorf("%w: %v", ErrJobScheduling, err),
					logger.Field{Key: "schedule", Value: name})
				continue
			}
			if r.create(ctx, sched) {
				result.Updated++
				r.logger.InfoCtx(ctx, "schedule job updated",
					logger.Field{Key: "schedule", Value: name},
					logger.Field{Key: "old_cron", Value: job.Schedule},
					logger.Field{Key: "cron", Value: sched.Cron},
					logger.Field{Key: "tags", Value: sched.Tags},
					r.nextRun(name))
			} else {
				result.Failed++
			}
		}
	}

	liveNames := make([]string, 0, len(live))
	for name := range live {
		liveNames = append(liveNames, name)
	}
	sort.Strings(liveNames)

	for _, name := range liveNames {
		if _, ok := desired[name]; ok {
			continue
		}
		if err := r.scheduler.DeleteJob(r.group, name); err != nil {
			result.Failed++
			r.logger.ErrorCtx(ctx, "failed to remove schedule job",
				fmt.Errorf("%w: %v", ErrJobScheduling, err),
				logger.Field{Key: "schedule", Value: name})
			continue
		}
		result.Removed++
		r.logger.InfoCtx(ctx, "schedule job removed", logger.Field{Key: "schedule", Value: name})
	}

	result.Live = len(r.scheduler.ListJobsInGroup(r.group))

	if result.Created+result.Updated+result.Removed+result.Failed > 0 {
		r.logger.DebugCtx(ctx, "reconciliation finished",
			logger.Field{Key: "created", Value: result.Created},
			logger.Field{Key: "updated", Value: result.Updated},
			logger.Field{Key: "removed", Value: result.Removed},
			logger.Field{Key: "failed", Value: result.Failed})
	}

	return result
}

func (r *Reconciler) create(ctx context.Context, sched store.Schedule) bool {
	job := cron.Job{
		Name:     sched.Name,
		Group:    r.group,
		Schedule: sched.Cron,
		Tags:     append([]string(nil), sched.Tags...),
	}

	if err := r.scheduler.CreateRecurring(job, r.body(sched)); err != nil {
		r.logger.ErrorCtx(ctx, "failed to create schedule job",
			fmt.Errorf("%w: %v", ErrJobScheduling, err),
			logger.Field{Key: "schedule", Value: sched.Name},
			logger.Field{Key: "cron", Value: sched.Cron})
		return false
	}
	return true
}

func (r *Reconciler) nextRun(name string) logger.Field {
	next, ok := r.scheduler.NextRun(r.group, name)
	if !ok || next.IsZero() {
		return logger.Field{Key: "next_run", Value: "unknown"}
	}
	return logger.Field{Key: "next_run", Value: next}
}

// body binds a schedule snapshot to the fire function. The snapshot stays
// valid until the reconciler replaces the job.
func (r *Reconciler) body(sched store.Schedule) func() {
	sched.Tags = append([]string(nil), sched.Tags...)
	return func() {
		_ = r.fire(r.fireContext(), sched)
	}
}

func (r *Reconciler) fireContext() context.Context {
	r.ctxMu.RLock()
	defer r.ctxMu.RUnlock()
	return r.baseCtx
}

func sameTags(a, b []string) bool {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}
	if len(setA) != len(setB) {
		return false
	}
	for t := range setA {
		if _, ok := setB[t]; !ok {
			return false
		}
	}
	return true
}
