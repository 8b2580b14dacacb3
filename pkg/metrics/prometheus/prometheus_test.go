package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/pkg/metrics"
)

func TestMetricsRegisterAndRecord(t *testing.T) {
	metrics.InitRegistry()

	cmd := NewCommandMetrics()
	dma := NewDMAMetrics()
	conn := NewConnectionMetrics()

	cmd.RecordCommand("READ_FILE", "SUCCESS", 2*time.Millisecond)
	cmd.RecordBytes("upload", 10)
	dma.RecordTransfer("upload", "success", 16, 50*time.Microsecond)
	dma.RecordTransfer("download", "device", 16, time.Microsecond)
	dma.RecordChunks("upload", 3)
	conn.RecordConnectionAccepted()
	conn.SetActiveConnections(1)

	impl, ok := cmd.(*commandMetrics)
	require.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(impl.commandsTotal.WithLabelValues("READ_FILE", "SUCCESS")))
	assert.Equal(t, 10.0, testutil.ToFloat64(impl.bytesMoved.WithLabelValues("upload")))

	dimpl, ok := dma.(*dmaMetrics)
	require.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(dimpl.transfersTotal.WithLabelValues("download", "device")))
	assert.Equal(t, 16.0, testutil.ToFloat64(dimpl.transferBytes.WithLabelValues("upload")))

	count, err := testutil.GatherAndCount(metrics.GetRegistry(), "pldmfs_adapter_connections_accepted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
