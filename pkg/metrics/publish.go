package metrics

import (
	"github.com/scott-wilson/publish/pkg/publish"
	"github.com/scott-wilson/publish/pkg/transaction/filesystem"
	"github.com/scott-wilson/publish/pkg/transaction/objectstore"
)

// Constructors for the Prometheus implementations. They are registered by
// pkg/metrics/prometheus during package initialization; this indirection
// avoids an import cycle while keeping the API in one place.
var (
	newPrometheusPublishMetrics     func() publish.Metrics
	newPrometheusFilesystemMetrics  func() filesystem.Metrics
	newPrometheusObjectStoreMetrics func() objectstore.Metrics
)

// RegisterPublishMetricsConstructor registers the Prometheus run metrics
// constructor.
func RegisterPublishMetricsConstructor(constructor func() publish.Metrics) {
	newPrometheusPublishMetrics = constructor
}

// RegisterFilesystemMetricsConstructor registers the Prometheus filesystem
// batch metrics constructor.
func RegisterFilesystemMetricsConstructor(constructor func() filesystem.Metrics) {
	newPrometheusFilesystemMetrics = constructor
}

// RegisterObjectStoreMetricsConstructor registers the Prometheus object store
// metrics constructor.
func RegisterObjectStoreMetricsConstructor(constructor func() objectstore.Metrics) {
	newPrometheusObjectStoreMetrics = constructor
}

// NewPublishMetrics returns the run observer, or nil when metrics are
// disabled or no implementation is linked in.
//
// Example usage:
//
//	metrics.InitRegistry()
//	publish.Run(ctx, p, c, publish.WithMetrics(metrics.NewPublishMetrics()))
func NewPublishMetrics() publish.Metrics {
	if !IsEnabled() || newPrometheusPublishMetrics == nil {
		return nil
	}
	return newPrometheusPublishMetrics()
}

// NewFilesystemMetrics returns the filesystem batch observer, or nil when
// metrics are disabled.
func NewFilesystemMetrics() filesystem.Metrics {
	if !IsEnabled() || newPrometheusFilesystemMetrics == nil {
		return nil
	}
	return newPrometheusFilesystemMetrics()
}

// NewObjectStoreMetrics returns the object store observer, or nil when
// metrics are disabled.
func NewObjectStoreMetrics() objectstore.Metrics {
	if !IsEnabled() || newPrometheusObjectStoreMetrics == nil {
		return nil
	}
	return newPrometheusObjectStoreMetrics()
}
