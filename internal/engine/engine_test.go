package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	store     *fakeStore
	scheduler *fakeScheduler
	log       *memLog
	sink      *fakeSink
	recorder  *countingRecorder
	engine    *Engine
}

func newEngineFixture(markUsed string, q ...store.Quote) *engineFixture {
	f := &engineFixture{
		store:     &fakeStore{quotes: q},
		scheduler: newFakeScheduler(),
		log:       newMemLog(),
		sink:      &fakeSink{},
		recorder:  newCountingRecorder(),
	}
	l := testLogger()
	f.engine = New(f.store, f.log,
		NewSelector(f.log, l, WithSelectorRecorder(f.recorder)),
		NewOneShot(f.scheduler, 0, time.Minute, l),
		f.sink, l, Options{MarkUsed: markUsed, Recorder: f.recorder})
	return f
}

var daily = store.Schedule{Name: "daily", Cron: "0 0 9 * * ?", Tags: []string{"t"}}

func TestFire_ThreeQuoteCycle(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(MarkUsedScheduled, quotes(1, 2, 3)...)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.engine.Fire(ctx, daily))
	}

	ids := f.scheduler.deliveredQuoteIDs()
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, []int64{1, 2, 3}, f.log.ids("daily"))

	require.NoError(t, f.engine.Fire(ctx, daily))
	ids = f.scheduler.deliveredQuoteIDs()
	require.Len(t, ids, 4)
	assert.Equal(t, []int64{ids[3]}, f.log.ids("daily"))
	assert.Equal(t, 1, f.log.clears)
	assert.Equal(t, 4, f.recorder.fires[OutcomeScheduled])
}

func TestFire_NoEligibleQuotes(t *testing.T) {
	f := newEngineFixture(MarkUsedScheduled, quotes(1)...)

	err := f.engine.Fire(context.Background(), store.Schedule{Name: "weekend", Tags: []string{"other"}})
	assert.ErrorIs(t, err, ErrNoEligibleQuotes)
	assert.Empty(t, f.scheduler.deliveries)
	assert.Equal(t, 1, f.recorder.fires[OutcomeNoQuotes])
}

func TestFire_StoreUnavailable(t *testing.T) {
	f := newEngineFixture(MarkUsedScheduled, quotes(1)...)
	f.store.quotesErr = errBoom

	err := f.engine.Fire(context.Background(), daily)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, f.scheduler.deliveries)
}

func TestFire_SchedulingFailureDoesNotMarkUsed(t *testing.T) {
	f := newEngineFixture(MarkUsedScheduled, quotes(1, 2)...)
	f.scheduler.scheduleErr = errBoom

	err := f.engine.Fire(context.Background(), daily)
	assert.ErrorIs(t, err, ErrJobScheduling)
	assert.Empty(t, f.log.ids("daily"))
	assert.Equal(t, 1, f.recorder.fires[OutcomeScheduleError])
}

func TestFire_DeliveredModeDefersMarking(t *testing.T) {
	f := newEngineFixture(MarkUsedDelivered, quotes(1, 2)...)

	require.NoError(t, f.engine.Fire(context.Background(), daily))
	assert.Empty(t, f.log.ids("daily"))
	require.Len(t, f.scheduler.deliveries, 1)

	d := f.scheduler.deliveries[0]
	require.NoError(t, f.engine.Deliver(context.Background(), d))
	assert.Equal(t, []int64{d.QuoteID}, f.log.ids("daily"))
}

func TestDeliver_Success(t *testing.T) {
	f := newEngineFixture(MarkUsedScheduled)
	d := cron.Delivery{ID: "x", Schedule: "daily", QuoteID: 5, Text: "hello"}

	require.NoError(t, f.engine.Deliver(context.Background(), d))
	assert.Equal(t, []string{"hello"}, f.sink.sent)
	assert.Empty(t, f.log.ids("daily"))
	assert.Equal(t, 1, f.recorder.deliveries[OutcomeDelivered])
}

func TestDeliver_FailureIsContained(t *testing.T) {
	f := newEngineFixture(MarkUsedDelivered)
	f.sink.err = errBoom
	d := cron.Delivery{ID: "x", Schedule: "daily", QuoteID: 5, Text: "hello"}

	err := f.engine.Deliver(context.Background(), d)
	assert.ErrorIs(t, err, ErrDeliveryFailure)
	assert.Empty(t, f.log.ids("daily"))
	assert.Equal(t, 1, f.recorder.deliveries[OutcomeFailed])
}

func TestDeliver_FailureKeepsScheduledMark(t *testing.T) {
	f := newEngineFixture(MarkUsedScheduled, quotes(1)...)
	require.NoError(t, f.engine.Fire(context.Background(), daily))

	f.sink.err = errBoom
	err := f.engine.Deliver(context.Background(), f.scheduler.deliveries[0])
	assert.ErrorIs(t, err, ErrDeliveryFailure)
	assert.Equal(t, []int64{1}, f.log.ids("daily"))
}

func TestFire_ConcurrentFiringsNeverRepeat(t *testing.T) {
	ids := make([]int64, 20)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	f := newEngineFixture(MarkUsedScheduled, quotes(ids...)...)

	var wg sync.WaitGroup
	for i := 0; i < len(ids); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.engine.Fire(context.Background(), daily)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, ids, f.scheduler.deliveredQuoteIDs())
	assert.Equal(t, 0, f.log.clears)
}
