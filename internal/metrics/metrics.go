// Package metrics exposes engine and worker pool activity as Prometheus metrics.
package metrics

import (
	"github.com/aatumaykin/quotebot/internal/engine"
	"github.com/aatumaykin/quotebot/internal/workers"
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "quotebot"

// PrometheusMetrics records engine events. It implements engine.Recorder.
type PrometheusMetrics struct {
	registry          prometheus.Registerer
	reconcileRuns     *prometheus.CounterVec
	reconcileOps      *prometheus.CounterVec
	reconcileDuration prometheus.Histogram
	liveJobs          prometheus.Gauge
	fires             *prometheus.CounterVec
	deliveries        *prometheus.CounterVec
	cycleResets       *prometheus.CounterVec
}

var _ engine.Recorder = (*PrometheusMetrics)(nil)

// InitPrometheusMetrics creates the collectors and registers them with reg,
// or with the default registerer when reg is nil.
func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		registry: reg,
		reconcileRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_runs_total",
				Help:      "Reconciliation passes by result",
			},
			[]string{"result"},
		),
		reconcileOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_operations_total",
				Help:      "Live job changes made by reconciliation",
			},
			[]string{"op"},
		),
		reconcileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconcile_duration_seconds",
				Help:      "Duration of reconciliation passes",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
		liveJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_jobs",
				Help:      "Schedule jobs live in the scheduler after the last pass",
			},
		),
		fires: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedule_fires_total",
				Help:      "Schedule firings by outcome",
			},
			[]string{"schedule", "outcome"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Quote deliveries by outcome",
			},
			[]string{"schedule", "outcome"},
		),
		cycleResets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_resets_total",
				Help:      "Times a schedule exhausted its eligible quotes and started over",
			},
			[]string{"schedule"},
		),
	}

	reg.MustRegister(
		m.reconcileRuns,
		m.reconcileOps,
		m.reconcileDuration,
		m.liveJobs,
		m.fires,
		m.deliveries,
		m.cycleResets,
	)

	return m
}

// ObserveReconcile implements engine.Recorder.
func (m *PrometheusMetrics) ObserveReconcile(result engine.ReconcileResult) {
	if result.StoreError {
		m.reconcileRuns.WithLabelValues("store_error").Inc()
	} else {
		m.reconcileRuns.WithLabelValues("ok").Inc()
	}
	m.reconcileOps.WithLabelValues("created").Add(float64(result.Created))
	m.reconcileOps.WithLabelValues("updated").Add(float64(result.Updated))
	m.reconcileOps.WithLabelValues("removed").Add(float64(result.Removed))
	m.reconcileOps.WithLabelValues("failed").Add(float64(result.Failed))
	m.reconcileDuration.Observe(result.Duration.Seconds())
	m.liveJobs.Set(float64(result.Live))
}

// ObserveFire implements engine.Recorder.
func (m *PrometheusMetrics) ObserveFire(schedule, outcome string) {
	m.fires.WithLabelValues(schedule, outcome).Inc()
}

// ObserveDelivery implements engine.Recorder.
func (m *PrometheusMetrics) ObserveDelivery(schedule, outcome string) {
	m.deliveries.WithLabelValues(schedule, outcome).Inc()
}

// ObserveCycleReset implements engine.Recorder.
func (m *PrometheusMetrics) ObserveCycleReset(schedule string) {
	m.cycleResets.WithLabelValues(schedule).Inc()
}

// PoolStats is the part of the worker pool the metrics read.
type PoolStats interface {
	Metrics() workers.PoolMetrics
	QueueSize() int
}

// RegisterPool exposes the pool counters, read on every scrape.
func (m *PrometheusMetrics) RegisterPool(namespace string, pool PoolStats) {
	counter := func(name, help string, read func(workers.PoolMetrics) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help},
			func() float64 { return float64(read(pool.Metrics())) },
		)
	}

	m.registry.MustRegister(
		counter("worker_tasks_submitted_total", "Tasks submitted to the worker pool",
			func(pm workers.PoolMetrics) uint64 { return pm.TasksSubmitted }),
		counter("worker_tasks_completed_total", "Tasks completed by the worker pool",
			func(pm workers.PoolMetrics) uint64 { return pm.TasksCompleted }),
		counter("worker_tasks_failed_total", "Tasks that failed in the worker pool",
			func(pm workers.PoolMetrics) uint64 { return pm.TasksFailed }),
		counter("worker_tasks_dropped_total", "Tasks dropped because the pool was stopped",
			func(pm workers.PoolMetrics) uint64 { return pm.TasksDropped }),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Namespace: namespace, Name: "worker_queue_length", Help: "Tasks waiting in the worker queue"},
			func() float64 { return float64(pool.QueueSize()) },
		),
	)
}
