// Package prometheus implements the pkg/metrics interfaces on top of the
// global Prometheus registry.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/pldmfs/pkg/metrics"
)

// commandMetrics is the Prometheus implementation of metrics.CommandMetrics.
type commandMetrics struct {
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	bytesMoved      *prometheus.CounterVec
}

// NewCommandMetrics returns a Prometheus-backed CommandMetrics, or a no-op
// implementation when the registry is not initialized.
func NewCommandMetrics() metrics.CommandMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopCommandMetrics()
	}

	reg := metrics.GetRegistry()

	return &commandMetrics{
		commandsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "commands_total",
				Help:      "Total number of file I/O commands by command and completion code",
			},
			[]string{"command", "completion_code"},
		),
		commandDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Name:      "command_duration_milliseconds",
				Help:      "Duration of file I/O commands in milliseconds",
				Buckets:   []float64{0.1, 1, 10, 100, 1000, 10000},
			},
			[]string{"command"},
		),
		bytesMoved: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Name:      "command_bytes_total",
				Help:      "Payload bytes moved by file I/O commands",
			},
			[]string{"direction"},
		),
	}
}

func (m *commandMetrics) RecordCommand(command string, completionCode string, duration time.Duration) {
	m.commandsTotal.WithLabelValues(command, completionCode).Inc()
	m.commandDuration.WithLabelValues(command).Observe(float64(duration) / float64(time.Millisecond))
}

func (m *commandMetrics) RecordBytes(direction string, bytes int64) {
	if bytes <= 0 {
		return
	}
	m.bytesMoved.WithLabelValues(direction).Add(float64(bytes))
}
