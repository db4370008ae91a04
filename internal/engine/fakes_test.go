package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aatumaykin/quotebot/internal/cron"
	"github.com/aatumaykin/quotebot/internal/logger"
	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/aatumaykin/quotebot/internal/tracking"
)

var errBoom = errors.New("boom")

func testLogger() *logger.Logger {
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	if err != nil {
		panic(err)
	}
	return log
}

type fakeStore struct {
	mu          sync.Mutex
	schedules   []store.Schedule
	quotes      []store.Quote
	schedErr    error
	quotesErr   error
	listedTimes int
}

func (f *fakeStore) ListSchedules(context.Context) ([]store.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listedTimes++
	if f.schedErr != nil {
		return nil, f.schedErr
	}
	return append([]store.Schedule(nil), f.schedules...), nil
}

func (f *fakeStore) ListQuotesByTags(_ context.Context, tags []string) ([]store.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quotesErr != nil {
		return nil, f.quotesErr
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	var out []store.Quote
	for _, q := range f.quotes {
		for _, t := range q.Tags {
			if _, ok := want[t]; ok {
				out = append(out, q)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) setSchedules(s ...store.Schedule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules = s
}

type call struct {
	op   string
	name string
}

type fakeScheduler struct {
	mu          sync.Mutex
	jobs        map[string]cron.Job
	runs        map[string]func()
	calls       []call
	deliveries  []cron.Delivery
	failCreate  map[string]bool
	failDelete  map[string]bool
	scheduleErr error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		jobs:       make(map[string]cron.Job),
		runs:       make(map[string]func()),
		failCreate: make(map[string]bool),
		failDelete: make(map[string]bool),
	}
}

func (f *fakeScheduler) CreateRecurring(job cron.Job, run func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate[job.Name] {
		return fmt.Errorf("%w: rejected", cron.ErrInvalidCron)
	}
	if _, ok := f.jobs[job.Key()]; ok {
		return cron.ErrJobExists
	}
	f.jobs[job.Key()] = job
	f.runs[job.Key()] = run
	f.calls = append(f.calls, call{op: "create", name: job.Name})
	return nil
}

func (f *fakeScheduler) DeleteJob(group, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[name] {
		return errBoom
	}
	key := cron.Job{Group: group, Name: name}.Key()
	if _, ok := f.jobs[key]; !ok {
		return cron.ErrJobNotFound
	}
	delete(f.jobs, key)
	delete(f.runs, key)
	f.calls = append(f.calls, call{op: "delete", name: name})
	return nil
}

func (f *fakeScheduler) ListJobsInGroup(group string) []cron.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cron.Job
	for _, j := range f.jobs {
		if j.Group == group {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeScheduler) NextRun(group, name string) (time.Time, bool) {
	f.mu.Lock()
	job, ok := f.jobs[cron.Job{Group: group, Name: name}.Key()]
	f.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	schedule, err := cron.ParseSpec(job.Schedule)
	if err != nil {
		return time.Time{}, false
	}
	return schedule.Next(time.Now()), true
}

func (f *fakeScheduler) ScheduleOnce(d cron.Delivery) (cron.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return cron.Delivery{}, f.scheduleErr
	}
	d.ID = fmt.Sprintf("d%d", len(f.deliveries)+1)
	f.deliveries = append(f.deliveries, d)
	return d, nil
}

func (f *fakeScheduler) seed(job cron.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.Key()] = job
	f.runs[job.Key()] = func() {}
}

func (f *fakeScheduler) takeCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.calls
	f.calls = nil
	return c
}

func (f *fakeScheduler) run(group, name string) {
	f.mu.Lock()
	fn := f.runs[cron.Job{Group: group, Name: name}.Key()]
	f.mu.Unlock()
	fn()
}

func (f *fakeScheduler) deliveredQuoteIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.deliveries))
	for _, d := range f.deliveries {
		ids = append(ids, d.QuoteID)
	}
	return ids
}

// memLog is an in-memory tracking.Log that counts clears.
type memLog struct {
	mu       sync.Mutex
	records  map[string]map[int64]struct{}
	clears   int
	loadErr  error
	clearErr error
}

func newMemLog() *memLog {
	return &memLog{records: make(map[string]map[int64]struct{})}
}

func (m *memLog) Load(_ context.Context, schedule string) (tracking.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return tracking.Record{}, m.loadErr
	}
	r := tracking.NewRecord(schedule)
	for id := range m.records[schedule] {
		r.IDs[id] = struct{}{}
	}
	return r, nil
}

func (m *memLog) Append(_ context.Context, schedule string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[schedule] == nil {
		m.records[schedule] = make(map[int64]struct{})
	}
	m.records[schedule][id] = struct{}{}
	return nil
}

func (m *memLog) Clear(_ context.Context, schedule string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.clears++
	delete(m.records, schedule)
	return nil
}

func (m *memLog) ids(schedule string) []int64 {
	r, _ := m.Load(context.Background(), schedule)
	return r.Sorted()
}

type fakeSink struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSink) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

type countingRecorder struct {
	mu         sync.Mutex
	reconciles []ReconcileResult
	fires      map[string]int
	deliveries map[string]int
	resets     int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{fires: map[string]int{}, deliveries: map[string]int{}}
}

func (c *countingRecorder) ObserveReconcile(r ReconcileResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconciles = append(c.reconciles, r)
}

func (c *countingRecorder) ObserveFire(_, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fires[outcome]++
}

func (c *countingRecorder) ObserveDelivery(_, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deliveries[outcome]++
}

func (c *countingRecorder) ObserveCycleReset(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func quotes(ids ...int64) []store.Quote {
	out := make([]store.Quote, 0, len(ids))
	for _, id := range ids {
		out = append(out, store.Quote{ID: id, Text: fmt.Sprintf("quote %d", id), Tags: []string{"t"}})
	}
	return out
}
