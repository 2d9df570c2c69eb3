// Package prometheus implements the publish observers on top of the
// Prometheus client. Importing it registers the constructors used by
// pkg/metrics.
package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/scott-wilson/publish/pkg/metrics"
	"github.com/scott-wilson/publish/pkg/publish"
)

func init() {
	metrics.RegisterPublishMetricsConstructor(NewPublishMetrics)
	metrics.RegisterFilesystemMetricsConstructor(NewFilesystemMetrics)
	metrics.RegisterObjectStoreMetricsConstructor(NewObjectStoreMetrics)
}

// durationBuckets are shared by every duration histogram, in milliseconds.
var durationBuckets = []float64{
	1,      // 1ms - metadata only
	10,     // 10ms
	50,     // 50ms
	100,    // 100ms
	500,    // 500ms - small copies
	1000,   // 1s
	5000,   // 5s - large trees
	30000,  // 30s
	120000, // 2m - very large publishes
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func milliseconds(d time.Duration) float64 {
	return d.Seconds() * 1000
}

// publishMetrics is the Prometheus implementation of publish.Metrics.
type publishMetrics struct {
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

var (
	publishOnce     sync.Once
	publishInstance *publishMetrics
)

// NewPublishMetrics returns the process-wide run observer, or nil if metrics
// are not enabled.
func NewPublishMetrics() publish.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	publishOnce.Do(func() {
		publishInstance = newPublishMetrics(metrics.GetRegistry())
	})
	return publishInstance
}

func newPublishMetrics(reg prometheus.Registerer) *publishMetrics {
	return &publishMetrics{
		runsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "publish_runs_total",
				Help: "Total number of publish runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "publish_run_duration_milliseconds",
				Help:    "Duration of publish runs in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"outcome"},
		),
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "publish_stage_operations_total",
				Help: "Total number of stage invocations, commits and rollbacks by stage and status",
			},
			[]string{"stage", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "publish_stage_operation_duration_milliseconds",
				Help:    "Duration of stage invocations, commits and rollbacks in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"stage", "operation"},
		),
	}
}

func (m *publishMetrics) observe(stage, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(stage, operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(stage, operation).Observe(milliseconds(duration))
}

func (m *publishMetrics) ObserveStage(stage string, duration time.Duration, err error) {
	m.observe(stage, "invoke", duration, err)
}

func (m *publishMetrics) ObserveCommit(stage string, duration time.Duration, err error) {
	m.observe(stage, "commit", duration, err)
}

func (m *publishMetrics) ObserveRollback(stage string, duration time.Duration, err error) {
	m.observe(stage, "rollback", duration, err)
}

func (m *publishMetrics) RecordRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(milliseconds(duration))
}
