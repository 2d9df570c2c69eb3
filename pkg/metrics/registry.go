// Package metrics provides optional Prometheus metrics for publish runs.
//
// All metrics are optional. If InitRegistry was never called every
// constructor returns nil, and the components treat a nil observer as a
// no-op with zero overhead.
//
// Usage:
//
//	// Initialize the global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create observers for the components
//	runMetrics := metrics.NewPublishMetrics()
//	fsMetrics := metrics.NewFilesystemMetrics()
//
//	// Or use nil for no-op behavior
//	publish.Run(ctx, p, c) // No metrics
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all publish metrics.
	// Protected by registryOnce for write-once, read-many access.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// It must be called before creating any metrics instances. Subsequent calls
// are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for the node_exporter textfile collector. The file is
// replaced atomically. It does nothing when metrics are disabled.
func WriteTextfile(path string) error {
	reg := GetRegistry()
	if reg == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
