package workers

import (
	"time"
)

// Metrics returns the current pool metrics.
func (p *WorkerPool) Metrics() PoolMetrics {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	return p.metrics
}

// incrementSubmitted increments the submitted task counter.
func (p *WorkerPool) incrementSubmitted() {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	p.metrics.TasksSubmitted++
}

// incrementDropped increments the dropped task counter.
func (p *WorkerPool) incrementDropped() {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	p.metrics.TasksDropped++
}

// recordResult counts a finished task and its duration.
func (p *WorkerPool) recordResult(failed bool, d time.Duration) {
	p.metricsMu.Lock()
	defer p.metricsMu.Unlock()
	if failed {
		p.metrics.TasksFailed++
	} else {
		p.metrics.TasksCompleted++
	}
	p.metrics.TotalDuration += d
}
