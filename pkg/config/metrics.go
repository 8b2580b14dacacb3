package config

import (
	"github.com/marmos91/pldmfs/pkg/metrics"
	promMetrics "github.com/marmos91/pldmfs/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from
// configuration. The collectors are never nil.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	Command    metrics.CommandMetrics
	DMA        metrics.DMAMetrics
	Connection metrics.ConnectionMetrics
}

// InitializeMetrics creates the metrics components.
//
// When metrics are enabled the global Prometheus registry is initialized and
// Prometheus-backed collectors are returned together with the HTTP server.
// Otherwise every collector is a no-op and Server is nil.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Command:    metrics.NewNoopCommandMetrics(),
			DMA:        metrics.NewNoopDMAMetrics(),
			Connection: metrics.NewNoopConnectionMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server: metrics.NewServer(metrics.ServerConfig{
			Port:            cfg.Metrics.Port,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		}),
		Command:    promMetrics.NewCommandMetrics(),
		DMA:        promMetrics.NewDMAMetrics(),
		Connection: promMetrics.NewConnectionMetrics(),
	}
}
