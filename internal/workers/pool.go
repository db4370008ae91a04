package workers

import (
	"context"
	"sync"

	"github.com/aatumaykin/quotebot/internal/logger"
)

// WorkerPool manages a pool of goroutine workers for concurrent task execution.
// Stop closes the queue and lets workers drain what was already submitted.
type WorkerPool struct {
	taskQueue chan Task
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logger.Logger

	mu     sync.RWMutex // guards closed and sends on taskQueue
	closed bool

	execMu    sync.RWMutex
	executors map[string]TaskExecutor

	metricsMu sync.Mutex
	metrics   PoolMetrics
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	if bufferSize < 0 {
		bufferSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, bufferSize),
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
		logger:    log,
		executors: make(map[string]TaskExecutor),
	}
}

// Register sets the executor for taskType, replacing any previous one.
func (p *WorkerPool) Register(taskType string, exec TaskExecutor) {
	p.execMu.Lock()
	defer p.execMu.Unlock()
	p.executors[taskType] = exec
}

// Start initializes and starts all worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit sends a task to the worker pool for execution.
// It blocks if the task queue is full. Tasks submitted after Stop are dropped.
func (p *WorkerPool) Submit(task Task) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.incrementDropped()
		p.logger.Warn("task dropped, pool stopped",
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "task_type", Value: task.Type})
		return
	}

	p.incrementSubmitted()

	p.logger.DebugCtx(p.ctx, "task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	p.taskQueue <- task
}

// Stop gracefully shuts down the worker pool.
// Queued tasks are executed before it returns.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()

	metrics := p.Metrics()
	p.logger.Info("worker pool stopped",
		logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
		logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
		logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed},
		logger.Field{Key: "tasks_dropped", Value: metrics.TasksDropped})
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the current number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}

func (p *WorkerPool) executor(taskType string) (TaskExecutor, bool) {
	p.execMu.RLock()
	defer p.execMu.RUnlock()
	exec, ok := p.executors[taskType]
	return exec, ok
}
