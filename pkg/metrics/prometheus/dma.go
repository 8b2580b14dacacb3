package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/pldmfs/pkg/metrics"
)

type dmaMetrics struct {
	transfersTotal   *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	transferBytes    *prometheus.CounterVec
	chunks           *prometheus.HistogramVec
}

// NewDMAMetrics returns a Prometheus-backed DMAMetrics, or a no-op
// implementation when the registry is not initialized.
func NewDMAMetrics() metrics.DMAMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopDMAMetrics()
	}

	reg := metrics.GetRegistry()

	return &dmaMetrics{
		transfersTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "dma",
				Name:      "transfers_total",
				Help:      "DMA engine calls by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),
		transferDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "dma",
				Name:      "transfer_duration_microseconds",
				Help:      "Duration of a single DMA engine call in microseconds",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
			},
			[]string{"direction"},
		),
		transferBytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metrics.Namespace,
				Subsystem: "dma",
				Name:      "bytes_total",
				Help:      "Bytes requested from the DMA engine",
			},
			[]string{"direction"},
		),
		chunks: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: "dma",
				Name:      "chunks_per_transfer",
				Help:      "Number of engine calls per orchestrated transfer",
				Buckets:   []float64{1, 2, 4, 8, 16, 64, 256},
			},
			[]string{"direction"},
		),
	}
}

func (m *dmaMetrics) RecordTransfer(direction string, outcome string, bytes int64, duration time.Duration) {
	m.transfersTotal.WithLabelValues(direction, outcome).Inc()
	m.transferDuration.WithLabelValues(direction).Observe(float64(duration) / float64(time.Microsecond))
	if outcome == "success" {
		m.transferBytes.WithLabelValues(direction).Add(float64(bytes))
	}
}

func (m *dmaMetrics) RecordChunks(direction string, chunks int) {
	m.chunks.WithLabelValues(direction).Observe(float64(chunks))
}
