// Package workers provides an async worker pool for background task execution.
// Task types are dispatched to executors registered on the pool.
package workers

import (
	"context"
	"time"
)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier
	Type    string          // Task type, selects the executor
	Payload interface{}     // Task payload
	Context context.Context // Task-specific context for cancellation/timeout
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string        // ID of the executed task
	Error    error         // Error if execution failed
	Output   string        // Task output
	Duration time.Duration // Execution duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksDropped   uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}

// TaskExecutor defines the interface for task-specific execution logic
type TaskExecutor func(context.Context, Task) (string, error)

// Constants for worker pool configuration
const (
	DefaultPoolSize  = 2
	DefaultQueueSize = 100
)
