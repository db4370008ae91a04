// Package tracking records which quotes each schedule has already used in
// its current cycle. A record is append-only until the eligible set is
// exhausted, at which point it is cleared and the cycle starts over.
package tracking

import (
	"context"
	"errors"
	"sort"
)

// ErrInvalidSchedule is returned for an empty schedule name.
var ErrInvalidSchedule = errors.New("tracking: schedule name is empty")

// Log is durable per-schedule storage of used quote ids.
type Log interface {
	// Load returns the record of schedule, empty when nothing was recorded yet.
	Load(ctx context.Context, schedule string) (Record, error)
	Append(ctx context.Context, schedule string, quoteID int64) error
	Clear(ctx context.Context, schedule string) error
}

// Record is the set of quote ids used by one schedule since its last reset.
type Record struct {
	Schedule string
	IDs      map[int64]struct{}
}

// NewRecord builds a record holding ids.
func NewRecord(schedule string, ids ...int64) Record {
	r := Record{Schedule: schedule, IDs: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		r.IDs[id] = struct{}{}
	}
	return r
}

// Contains reports whether id was used in the current cycle.
func (r Record) Contains(id int64) bool {
	_, ok := r.IDs[id]
	return ok
}

// Len returns the number of recorded ids.
func (r Record) Len() int {
	return len(r.IDs)
}

// Sorted returns the recorded ids in ascending order.
func (r Record) Sorted() []int64 {
	ids := make([]int64, 0, len(r.IDs))
	for id := range r.IDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
