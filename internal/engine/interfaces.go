// Package engine keeps live cron jobs in step with the stored schedules and
// turns each firing into a randomly delayed delivery of a quote that the
// schedule has not used since its eligible set was last exhausted.
package engine

import (
	"context"
	"time"

	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/store"
)

// ScheduleStore is the read side of the quote store.
type ScheduleStore interface {
	ListSchedules(ctx context.Context) ([]store.Schedule, error)
	ListQuotesByTags(ctx context.Context, tags []string) ([]store.Quote, error)
}

// JobScheduler creates and removes live jobs and one-shot deliveries.
type JobScheduler interface {
	CreateRecurring(job cron.Job, run func()) error
	DeleteJob(group, name string) error
	ListJobsInGroup(group string) []cron.Job
	NextRun(group, name string) (time.Time, bool)
	ScheduleOnce(d cron.Delivery) (cron.Delivery, error)
}

// DeliverySink sends a quote's text to its destination.
type DeliverySink interface {
	Send(ctx context.Context, text string) error
}

// Fire outcomes.
const (
	OutcomeScheduled     = "scheduled"
	OutcomeNoQuotes      = "no_quotes"
	OutcomeStoreError    = "store_error"
	OutcomeScheduleError = "schedule_error"
	OutcomeDelivered     = "delivered"
	OutcomeFailed        = "failed"
)

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Created  int
	Updated  int
	Removed  int
	Failed   int
	Live     int
	Duration time.Duration
	// StoreError is set when schedules could not be read and nothing changed.
	StoreError bool
}

// Recorder receives engine events, typically for metrics.
type Recorder interface {
	ObserveReconcile(result ReconcileResult)
	ObserveFire(schedule, outcome string)
	ObserveDelivery(schedule, outcome string)
	ObserveCycleReset(schedule string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveReconcile(ReconcileResult) {}
func (nopRecorder) ObserveFire(string, string) {}
func (nopRecorder) ObserveDelivery(string, string) {}
func (nopRecorder) ObserveCycleReset(string) {}
