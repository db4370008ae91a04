package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/aatumaykin/quotebot/internal/tracking"
)

// Mark-used modes.
const (
	MarkUsedScheduled = "scheduled"
	MarkUsedDelivered = "delivered"
)

// Engine runs the body of a schedule's job and the delivery it produces.
type Engine struct {
	store    ScheduleStore
	tracking tracking.Log
	selector *Selector
	oneShot  *OneShot
	sink     DeliverySink
	markUsed string
	logger   *logger.Logger
	recorder Recorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options configures an Engine.
type Options struct {
	MarkUsed string
	Recorder Recorder
}

// New creates an engine. An empty MarkUsed means MarkUsedScheduled.
func New(st ScheduleStore, log tracking.Log, selector *Selector, oneShot *OneShot, sink DeliverySink, l *logger.Logger, opts Options) *Engine {
	if opts.MarkUsed == "" {
		opts.MarkUsed = MarkUsedScheduled
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Engine{
		store:    st,
		tracking: log,
		selector: selector,
		oneShot:  oneShot,
		sink:     sink,
		markUsed: opts.MarkUsed,
		logger:   l,
		recorder: opts.Recorder,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (e *Engine) lock(schedule string) func() {
	e.mu.Lock()
	m, ok := e.locks[schedule]
	if !ok {
		m = &sync.Mutex{}
		e.locks[schedule] = m
	}
	e.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Fire selects a quote for sched and schedules its delayed delivery. All
// failures are logged here; the returned error is informational.
func (e *Engine) Fire(ctx context.Context, sched store.Schedule) error {
	unlock := e.lock(sched.Name)
	defer unlock()

	fields := []logger.Field{{Key: "schedule", Value: sched.Name}}

	eligible, err := e.store.ListQuotesByTags(ctx, sched.Tags)
	if err != nil {
		err = fmt.Errorf("%w: list quotes: %v", ErrStoreUnavailable, err)
		e.recorder.ObserveFire(sched.Name, OutcomeStoreError)
		e.logger.ErrorCtx(ctx, "schedule fire failed", err, fields...)
		return err
	}

	q, err := e.selector.Select(ctx, sched.Name, eligible)
	if err != nil {
		if errors.Is(err, ErrNoEligibleQuotes) {
			e.recorder.ObserveFire(sched.Name, OutcomeNoQuotes)
			e.logger.WarnCtx(ctx, "no eligible quotes for schedule",
				append(fields, logger.Field{Key: "tags", Value: sched.Tags})...)
			return err
		}
		e.recorder.ObserveFire(sched.Name, OutcomeStoreError)
		e.logger.ErrorCtx(ctx, "quote selection failed", err, fields...)
		return err
	}

	fields = append(fields, logger.Field{Key: "quote_id", Value: q.ID})

	if err := e.oneShot.ScheduleDelivery(ctx, sched.Name, q); err != nil {
		e.recorder.ObserveFire(sched.Name, OutcomeScheduleError)
		e.logger.ErrorCtx(ctx, "failed to schedule delivery", err, fields...)
		return err
	}
	e.recorder.ObserveFire(sched.Name, OutcomeScheduled)

	if e.markUsed == MarkUsedScheduled {
		if err := e.tracking.Append(ctx, sched.Name, q.ID); err != nil {
			err = fmt.Errorf("%w: append tracking record: %v", ErrStoreUnavailable, err)
			e.logger.ErrorCtx(ctx, "failed to mark quote as used", err, fields...)
			return err
		}
	}

	e.logger.InfoCtx(ctx, "quote selected", fields...)
	return nil
}

// Deliver sends a fired delivery through the sink. Sink failures are logged
// with the schedule and quote id and never propagate to the scheduler.
func (e *Engine) Deliver(ctx context.Context, d cron.Delivery) error {
	fields := []logger.Field{
		{Key: "schedule", Value: d.Schedule},
		{Key: "quote_id", Value: d.QuoteID},
		{Key: "delivery_id", Value: d.ID},
	}

	if err := e.sink.Send(ctx, d.Text); err != nil {
		err = fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
		e.recorder.ObserveDelivery(d.Schedule, OutcomeFailed)
		e.logger.ErrorCtx(ctx, "quote delivery failed", err, fields...)
		return err
	}
	e.recorder.ObserveDelivery(d.Schedule, OutcomeDelivered)

	if e.markUsed == MarkUsedDelivered {
		unlock := e.lock(d.Schedule)
		err := e.tracking.Append(ctx, d.Schedule, d.QuoteID)
		unlock()
		if err != nil {
			err = fmt.Errorf("%w: append tracking record: %v", ErrStoreUnavailable, err)
			e.logger.ErrorCtx(ctx, "failed to mark quote as used", err, fields...)
			return err
		}
	}

	e.logger.InfoCtx(ctx, "quote delivered", fields...)
	return nil
}
