// Package cron provides types and helper functions for cron jobs.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrJobExists is returned when a job with the same group and name is live.
	ErrJobExists = errors.New("job already exists")
	// ErrJobNotFound is returned when deleting an unknown job.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidCron is returned for expressions the parser rejects.
	ErrInvalidCron = errors.New("invalid cron expression")
)

// Task represents a delivery task to be submitted to worker pool
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Task type: "delivery"
	Payload interface{}     // Task payload (Delivery)
	Context context.Context // Task-specific context for cancellation/timeout
}

// WorkerPool is an interface for worker pool operations
type WorkerPool interface {
	Submit(task Task)
}

// Job is a live recurring job. Jobs are identified by group and name.
type Job struct {
	Name     string   `json:"name"`
	Group    string   `json:"group"`
	Schedule string   `json:"schedule"` // Cron expression as given by the caller
	Tags     []string `json:"tags,omitempty"`
}

// Key returns the registry key of the job.
func (j Job) Key() string {
	return jobKey(j.Group, j.Name)
}

func jobKey(group, name string) string {
	return group + "/" + name
}

// Delivery is a pending one-shot send of a single quote.
type Delivery struct {
	ID         string     `json:"id"`
	Schedule   string     `json:"schedule"`
	QuoteID    int64      `json:"quote_id"`
	Text       string     `json:"text"`
	FireAt     time.Time  `json:"fire_at"`
	Executed   bool       `json:"executed,omitempty"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

func (d Delivery) String() string {
	return fmt.Sprintf("delivery %s (schedule=%s quote=%d at=%s)", d.ID, d.Schedule, d.QuoteID, d.FireAt.Format(time.RFC3339))
}

func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Group != jobs[j].Group {
			return jobs[i].Group < jobs[j].Group
		}
		return jobs[i].Name < jobs[j].Name
	})
}

func sortDeliveries(deliveries []Delivery) {
	sort.Slice(deliveries, func(i, j int) bool {
		return deliveries[i].FireAt.Before(deliveries[j].FireAt)
	})
}

// onceSchedule fires a single time at a fixed instant.
type onceSchedule struct {
	at time.Time
}

// Next implements cron.Schedule. Once t reaches the fire time the zero time is
// returned, which robfig/cron treats as "never again".
func (o onceSchedule) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}
