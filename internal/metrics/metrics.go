// Package metrics exports Prometheus metrics for the search indexer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "search_indexer"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeSkipped  = "skipped"
)

// Metrics holds all indexer Prometheus metrics.
type Metrics struct {
	// Engine operations
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	VersionConflicts  *prometheus.CounterVec
	BulkItems         *prometheus.CounterVec
	ActiveAliases     prometheus.Gauge

	// Task queue
	TasksProcessed *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	TasksEnqueued  *prometheus.CounterVec

	// Post-commit hooks
	HookFailures *prometheus.CounterVec

	// Rebuild
	RebuildDocuments *prometheus.CounterVec
	RebuildDuration  prometheus.Histogram
	RebuildsTotal    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the metrics with reg. The default registerer is used when
// reg is nil; it panics if called twice against the same registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{gatherer: prometheus.DefaultGatherer}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	factory := promauto.With(reg)
	initOperationMetrics(factory, m)
	initTaskMetrics(factory, m)
	initRebuildMetrics(factory, m)
	return m
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func initOperationMetrics(f promauto.Factory, m *Metrics) {
	m.Operations = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Indexing API calls per alias by operation, object type and outcome",
	}, []string{"operation", "object_type", "outcome"})

	m.OperationDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of indexing API calls across all active aliases",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	m.VersionConflicts = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "version_conflicts_total",
		Help:      "Version conflicts reported by the engine and dropped",
	}, []string{"operation"})

	m.BulkItems = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bulk_items_total",
		Help:      "Documents submitted through bulk requests by outcome",
	}, []string{"outcome"})

	m.ActiveAliases = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_aliases",
		Help:      "Number of aliases receiving writes at the last lookup",
	})

	m.HookFailures = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hook_failures_total",
		Help:      "Post-commit indexing hooks that failed",
	}, []string{"hook"})
}

func initTaskMetrics(f promauto.Factory, m *Metrics) {
	m.TasksEnqueued = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_enqueued_total",
		Help:      "Tasks enqueued by name",
	}, []string{"task"})

	m.TasksProcessed = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_processed_total",
		Help:      "Tasks handled by the worker by name and outcome",
	}, []string{"task", "outcome"})

	m.TaskDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Time spent handling a task",
		Buckets:   prometheus.DefBuckets,
	}, []string{"task"})
}

func initRebuildMetrics(f promauto.Factory, m *Metrics) {
	m.RebuildDocuments = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rebuild_documents_total",
		Help:      "Documents loaded into the reindex alias by object type",
	}, []string{"object_type"})

	m.RebuildDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rebuild_duration_seconds",
		Help:      "Duration of full index rebuilds",
		Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600, 7200},
	})

	m.RebuildsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rebuilds_total",
		Help:      "Full index rebuilds by outcome",
	}, []string{"outcome"})
}

// RecordOperation records one engine call.
func (m *Metrics) RecordOperation(operation, objectType, outcome string) {
	m.Operations.WithLabelValues(operation, objectType, outcome).Inc()
}

// ObserveOperation records the duration of an operation across aliases.
func (m *Metrics) ObserveOperation(operation string, duration time.Duration) {
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordVersionConflicts records dropped version conflicts.
func (m *Metrics) RecordVersionConflicts(operation string, count int) {
	if count > 0 {
		m.VersionConflicts.WithLabelValues(operation).Add(float64(count))
	}
}

// RecordBulk records bulk item outcomes.
func (m *Metrics) RecordBulk(succeeded, failed int) {
	m.BulkItems.WithLabelValues(OutcomeSuccess).Add(float64(succeeded))
	m.BulkItems.WithLabelValues(OutcomeError).Add(float64(failed))
}

// SetActiveAliases records the number of active aliases.
func (m *Metrics) SetActiveAliases(count int) {
	m.ActiveAliases.Set(float64(count))
}

// RecordEnqueued records an enqueued task.
func (m *Metrics) RecordEnqueued(task string) {
	m.TasksEnqueued.WithLabelValues(task).Inc()
}

// RecordTask records a handled task.
func (m *Metrics) RecordTask(task, outcome string, duration time.Duration) {
	m.TasksProcessed.WithLabelValues(task, outcome).Inc()
	m.TaskDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// RecordHookFailure records a failed post-commit hook.
func (m *Metrics) RecordHookFailure(hook string) {
	m.HookFailures.WithLabelValues(hook).Inc()
}

// RecordRebuildDocuments records documents loaded during a rebuild.
func (m *Metrics) RecordRebuildDocuments(objectType string, count int) {
	m.RebuildDocuments.WithLabelValues(objectType).Add(float64(count))
}

// RecordRebuild records a finished rebuild.
func (m *Metrics) RecordRebuild(duration time.Duration, success bool) {
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
	}
	m.RebuildsTotal.WithLabelValues(outcome).Inc()
	m.RebuildDuration.Observe(duration.Seconds())
}
