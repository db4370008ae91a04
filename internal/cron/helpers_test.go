package cron

import (
	"sync"
	"testing"
	"time"

	"github.com/aatumaykin/quotebot/internal/logger"
)

// testLogger creates a test logger instance
func testLogger() *logger.Logger {
	log, err := logger.New(logger.Config{
		Level:  "debug",
		Format: "text",
		Output: "stdout",
	})
	if err != nil {
		panic(err)
	}
	return log
}

// stopScheduler stops a scheduler and ignores the error (for use in defer in tests)
func stopScheduler(s *Scheduler) {
	_ = s.Stop()
}

// recordingPool collects submitted tasks.
type recordingPool struct {
	mu    sync.Mutex
	tasks []Task
	ch    chan Task
}

func newRecordingPool() *recordingPool {
	return &recordingPool{ch: make(chan Task, 16)}
}

func (p *recordingPool) Submit(task Task) {
	p.mu.Lock()
	p.tasks = append(p.tasks, task)
	p.mu.Unlock()
	p.ch <- task
}

func (p *recordingPool) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func (p *recordingPool) wait(t *testing.T, timeout time.Duration) Task {
	t.Helper()
	select {
	case task := <-p.ch:
		return task
	case <-time.After(timeout):
		t.Fatalf("no task submitted within %s", timeout)
		return Task{}
	}
}
