// Package metrics defines the observability interfaces used by pldmfs
// components and owns the process-wide Prometheus registry.
//
// All metrics are optional. Components given a nil implementation fall back
// to no-op metrics, so the responder runs the same with or without a
// registry.
//
// Usage:
//
//	metrics.InitRegistry()
//	dmaMetrics := prometheus.NewDMAMetrics()
//	engine := dma.NewEngine(dma.Config{DevicePath: path, Metrics: dmaMetrics})
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Namespace prefixes every pldmfs metric name.
const Namespace = "pldmfs"

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the global registry and registers the Go runtime and
// process collectors. Later calls are no-ops.
//
// Until InitRegistry runs, GetRegistry returns nil and the constructors in
// pkg/metrics/prometheus hand out no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}),
		)
		registry = reg
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
