package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/store"
)

// OneShot turns a selected quote into a single delayed delivery.
// The delay is minDelay plus a uniform random duration in [0, maxDelay].
type OneShot struct {
	scheduler JobScheduler
	minDelay  time.Duration
	maxDelay  time.Duration
	logger    *logger.Logger
	now       func() time.Time
	int64N    func(n int64) int64
}

// NewOneShot creates a OneShot. Negative delays are treated as zero.
func NewOneShot(scheduler JobScheduler, minDelay, maxDelay time.Duration, l *logger.Logger) *OneShot {
	return &OneShot{
		scheduler: scheduler,
		minDelay:  max(minDelay, 0),
		maxDelay:  max(maxDelay, 0),
		logger:    l,
		now:       time.Now,
		int64N:    rand.Int64N,
	}
}

// Delay draws a delivery delay.
func (o *OneShot) Delay() time.Duration {
	return o.minDelay + time.Duration(o.int64N(int64(o.maxDelay)+1))
}

// ScheduleDelivery schedules exactly one delivery of q for schedule.
func (o *OneShot) ScheduleDelivery(ctx context.Context, schedule string, q store.Quote) error {
	delay := o.Delay()

	d, err := o.scheduler.ScheduleOnce(cron.Delivery{
		Schedule: schedule,
		QuoteID:  q.ID,
		Text:     q.Text,
		FireAt:   o.now().Add(delay),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJobScheduling, err)
	}

	o.logger.DebugCtx(ctx, "quote delivery delayed",
		logger.Field{Key: "schedule", Value: schedule},
		logger.Field{Key: "quote_id", Value: q.ID},
		logger.Field{Key: "delivery_id", Value: d.ID},
		logger.Field{Key: "delay", Value: delay.String()})

	return nil
}
