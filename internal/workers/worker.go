package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/quotebot/internal/logger"
)

// ErrUnknownTaskType is returned for tasks with no registered executor.
var ErrUnknownTaskType = errors.New("unknown task type")

// worker is the main worker goroutine that processes tasks from the queue
// until it is closed.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for task := range p.taskQueue {
		p.processTask(id, task)
	}

	p.logger.DebugCtx(p.ctx, "worker stopping",
		logger.Field{Key: "worker_id", Value: id})
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) Result {
	startTime := time.Now()

	p.logger.DebugCtx(p.ctx, "processing task",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	// Use task context if provided, otherwise use pool context
	execCtx := p.ctx
	if task.Context != nil {
		execCtx = task.Context
	}

	result := p.executeTask(execCtx, task)
	result.Duration = time.Since(startTime)
	p.recordResult(result.Error != nil, result.Duration)

	if result.Error != nil {
		p.logger.WarnCtx(execCtx, "task failed",
			logger.Field{Key: "worker_id", Value: workerID},
			logger.Field{Key: "task_id", Value: task.ID},
			logger.Field{Key: "task_type", Value: task.Type},
			logger.Field{Key: "error", Value: result.Error.Error()})
		return result
	}

	p.logger.DebugCtx(execCtx, "task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()})
	return result
}

// executeTask dispatches the task to its executor with panic recovery.
func (p *WorkerPool) executeTask(ctx context.Context, task Task) (result Result) {
	result.TaskID = task.ID

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	exec, ok := p.executor(task.Type)
	if !ok {
		result.Error = fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("panic during task execution: %v", r)
			p.logger.ErrorCtx(ctx, "task panic recovered", fmt.Errorf("panic: %v", r),
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}()

	result.Output, result.Error = exec(ctx, task)
	return result
}
