package engine

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/aatumaykin/quotebot/internal/tracking"
)

// Selector picks the next quote for a schedule.
type Selector struct {
	tracking tracking.Log
	logger   *logger.Logger
	recorder Recorder
	intN     func(n int) int
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithIntN replaces the random source; intN must return a value in [0, n).
func WithIntN(intN func(n int) int) SelectorOption {
	return func(s *Selector) { s.intN = intN }
}

// WithSelectorRecorder sets the recorder notified on cycle resets.
func WithSelectorRecorder(r Recorder) SelectorOption {
	return func(s *Selector) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewSelector creates a selector over the given tracking log.
func NewSelector(log tracking.Log, l *logger.Logger, opts ...SelectorOption) *Selector {
	s := &Selector{
		tracking: log,
		logger:   l,
		recorder: nopRecorder{},
		intN:     rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns a quote from eligible that schedule has not used in its
// current cycle, chosen uniformly at random. When every eligible quote has
// been used the record is cleared and the pick is made from the full set.
// Select never appends to the record.
func (s *Selector) Select(ctx context.Context, schedule string, eligible []store.Quote) (store.Quote, error) {
	eligible = dedupeQuotes(eligible)
	if len(eligible) == 0 {
		return store.Quote{}, ErrNoEligibleQuotes
	}

	record, err := s.tracking.Load(ctx, schedule)
	if err != nil {
		return store.Quote{}, fmt.Errorf("%w: load tracking record: %v", ErrStoreUnavailable, err)
	}

	unsent := make([]store.Quote, 0, len(eligible))
	for _, q := range eligible {
		if !record.Contains(q.ID) {
			unsent = append(unsent, q)
		}
	}

	if len(unsent) == 0 {
		if err := s.tracking.Clear(ctx, schedule); err != nil {
			return store.Quote{}, fmt.Errorf("%w: clear tracking record: %v", ErrStoreUnavailable, err)
		}
		s.recorder.ObserveCycleReset(schedule)
		s.logger.InfoCtx(ctx, "quote cycle completed, tracking reset",
			logger.Field{Key: "schedule", Value: schedule},
			logger.Field{Key: "eligible", Value: len(eligible)})
		unsent = eligible
	}

	return unsent[s.intN(len(unsent))], nil
}

func dedupeQuotes(quotes []store.Quote) []store.Quote {
	seen := make(map[int64]struct{}, len(quotes))
	out := make([]store.Quote, 0, len(quotes))
	for _, q := range quotes {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out
}
