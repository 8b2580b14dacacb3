package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/pldmfs/pkg/metrics"
)

type connectionMetrics struct {
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	connectionsRejected *prometheus.CounterVec
}

// NewConnectionMetrics returns a Prometheus-backed ConnectionMetrics, or a
// no-op implementation when the registry is not initialized.
func NewConnectionMetrics() metrics.ConnectionMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopConnectionMetrics()
	}

	reg := metrics.GetRegistry()

	return &connectionMetrics{
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: metrics.Namespace,
				Subsystem: "adapter",
				Name:      "active_connections",
				Help:      "Current number of endpoint connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "adapter",
				Name:      "connections_accepted_total",
				Help:      "Total number of endpoint connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "adapter",
				Name:      "connections_closed_total",
				Help:      "Total number of endpoint connections closed",
			},
		),
		connectionsRejected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "adapter",
				Name:      "connections_rejected_total",
				Help:      "Connections or messages refused by the adapter",
			},
			[]string{"reason"},
		),
	}
}

func (m *connectionMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *connectionMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *connectionMetrics) RecordConnectionRejected(reason string) {
	m.connectionsRejected.WithLabelValues(reason).Inc()
}

func (m *connectionMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}
