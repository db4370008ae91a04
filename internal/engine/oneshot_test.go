package engine

import (
	"context"
	"testing"
	"time"

	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneShot_DelayBounds(t *testing.T) {
	o := NewOneShot(newFakeScheduler(), 10*time.Second, time.Minute, testLogger())

	o.int64N = func(n int64) int64 { return 0 }
	assert.Equal(t, 10*time.Second, o.Delay())

	o.int64N = func(n int64) int64 { return n - 1 }
	assert.Equal(t, 70*time.Second, o.Delay())

	o2 := NewOneShot(newFakeScheduler(), 0, 5*time.Second, testLogger())
	for i := 0; i < 100; i++ {
		d := o2.Delay()
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 5*time.Second)
	}
}

func TestOneShot_ZeroMaxDelay(t *testing.T) {
	o := NewOneShot(newFakeScheduler(), 3*time.Second, 0, testLogger())
	assert.Equal(t, 3*time.Second, o.Delay())
}

func TestOneShot_ScheduleDelivery(t *testing.T) {
	scheduler := newFakeScheduler()
	o := NewOneShot(scheduler, time.Minute, time.Hour, testLogger())
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }
	o.int64N = func(n int64) int64 { return int64(30 * time.Minute) }

	q := store.Quote{ID: 42, Text: "Stay hungry"}
	require.NoError(t, o.ScheduleDelivery(context.Background(), "daily", q))

	require.Len(t, scheduler.deliveries, 1)
	d := scheduler.deliveries[0]
	assert.Equal(t, "daily", d.Schedule)
	assert.Equal(t, int64(42), d.QuoteID)
	assert.Equal(t, "Stay hungry", d.Text)
	assert.Equal(t, now.Add(31*time.Minute), d.FireAt)
}

func TestOneShot_SchedulerRejects(t *testing.T) {
	scheduler := newFakeScheduler()
	scheduler.scheduleErr = errBoom
	o := NewOneShot(scheduler, 0, time.Second, testLogger())

	err := o.ScheduleDelivery(context.Background(), "daily", store.Quote{ID: 1})
	assert.ErrorIs(t, err, ErrJobScheduling)
}
