package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/scott-wilson/publish/pkg/metrics"
	"github.com/scott-wilson/publish/pkg/transaction/filesystem"
	"github.com/scott-wilson/publish/pkg/transaction/objectstore"
)

// filesystemMetrics is the Prometheus implementation of filesystem.Metrics.
type filesystemMetrics struct {
	batchesTotal  *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batchActions  *prometheus.HistogramVec
}

var (
	filesystemOnce     sync.Once
	filesystemInstance *filesystemMetrics
)

// NewFilesystemMetrics returns the process-wide filesystem batch observer, or
// nil if metrics are not enabled.
func NewFilesystemMetrics() filesystem.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	filesystemOnce.Do(func() {
		filesystemInstance = newFilesystemMetrics(metrics.GetRegistry())
	})
	return filesystemInstance
}

func newFilesystemMetrics(reg prometheus.Registerer) *filesystemMetrics {
	return &filesystemMetrics{
		batchesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "publish_filesystem_batches_total",
				Help: "Total number of filesystem batches by action class, phase and status",
			},
			[]string{"class", "phase", "status"},
		),
		batchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "publish_filesystem_batch_duration_milliseconds",
				Help:    "Duration of filesystem batches in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"class", "phase"},
		),
		batchActions: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "publish_filesystem_batch_actions",
				Help:    "Distribution of actions per filesystem batch",
				Buckets: []float64{1, 2, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"class"},
		),
	}
}

func (m *filesystemMetrics) ObserveBatch(class, phase string, actions int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(class, phase, status(err)).Inc()
	m.batchDuration.WithLabelValues(class, phase).Observe(milliseconds(duration))
	m.batchActions.WithLabelValues(class).Observe(float64(actions))
}

// objectStoreMetrics is the Prometheus implementation of objectstore.Metrics.
type objectStoreMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTotal        *prometheus.CounterVec
}

var (
	objectStoreOnce     sync.Once
	objectStoreInstance *objectStoreMetrics
)

// NewObjectStoreMetrics returns the process-wide object store observer, or
// nil if metrics are not enabled.
func NewObjectStoreMetrics() objectstore.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	objectStoreOnce.Do(func() {
		objectStoreInstance = newObjectStoreMetrics(metrics.GetRegistry())
	})
	return objectStoreInstance
}

func newObjectStoreMetrics(reg prometheus.Registerer) *objectStoreMetrics {
	return &objectStoreMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "publish_objectstore_operations_total",
				Help: "Total number of object store operations by operation, phase and status",
			},
			[]string{"operation", "phase", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "publish_objectstore_operation_duration_milliseconds",
				Help: "Duration of object store operations in milliseconds",
				Buckets: []float64{
					10,    // 10ms - metadata operations
					50,    // 50ms - small objects
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s - medium objects
					5000,  // 5s - large objects
					30000, // 30s - very large uploads
				},
			},
			[]string{"operation"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "publish_objectstore_bytes_total",
				Help: "Total bytes uploaded, captured for restore and restored",
			},
			[]string{"operation"},
		),
	}
}

func (m *objectStoreMetrics) ObserveOperation(operation, phase string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, phase, status(err)).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(milliseconds(duration))
}

func (m *objectStoreMetrics) RecordBytes(operation string, bytes int64) {
	if m == nil || bytes <= 0 {
		return
	}
	m.bytesTotal.WithLabelValues(operation).Add(float64(bytes))
}
