package dma_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/dma/dmatest"
)

func TestChunkerSplitsTransfers(t *testing.T) {
	host := dmatest.NewHost(hostBase, 64*1024)
	chunker := dma.NewChunker(newEngine(t, host), 32, nil)
	data := pattern(200)
	path := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	require.NoError(t, chunker.TransferFile(path, 16, 80, hostBase+0x1000, dma.Upload))

	triggers := host.Triggers()
	require.Len(t, triggers, 3)
	assert.Equal(t, dma.Descriptor{HostAddress: hostBase + 0x1000, Length: 32, Upstream: 1}, triggers[0])
	assert.Equal(t, dma.Descriptor{HostAddress: hostBase + 0x1020, Length: 32, Upstream: 1}, triggers[1])
	assert.Equal(t, dma.Descriptor{HostAddress: hostBase + 0x1040, Length: 16, Upstream: 1}, triggers[2])
	assert.Equal(t, data[16:96], host.Read(hostBase+0x1000, 80))
}

func TestChunkerExactMultiple(t *testing.T) {
	host := dmatest.NewHost(hostBase, 64*1024)
	chunker := dma.NewChunker(newEngine(t, host), 32, nil)

	require.NoError(t, chunker.TransferBuffer(pattern(64), hostBase, dma.Upload))
	assert.Len(t, host.Triggers(), 2)
}

func TestChunkerStopsAtFirstFailure(t *testing.T) {
	host := dmatest.NewHost(hostBase, 64*1024)
	host.FailTrigger(unix.EIO, 2)
	chunker := dma.NewChunker(newEngine(t, host), 32, nil)
	path := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(path, pattern(256), 0o644))

	err := chunker.TransferFile(path, 0, 128, hostBase, dma.Upload)
	assert.Equal(t, dma.KindTrigger, dma.KindOf(err))
	assert.Len(t, host.Triggers(), 2, "no chunk after the failing one")
}

func TestChunkerDownloadCreatesFile(t *testing.T) {
	host := dmatest.NewHost(hostBase, 64*1024)
	incoming := pattern(48)
	host.Write(hostBase, incoming)
	chunker := dma.NewChunker(newEngine(t, host), 0, nil)
	path := filepath.Join(t.TempDir(), "new.bin")

	require.NoError(t, chunker.TransferFile(path, 0, 48, hostBase, dma.Download))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, incoming, got)
	assert.Equal(t, uint32(dma.DefaultMaxChunk), chunker.MaxChunk())
}

func TestChunkerMissingUploadSource(t *testing.T) {
	host := dmatest.NewHost(hostBase, 4096)
	chunker := dma.NewChunker(newEngine(t, host), 0, nil)

	err := chunker.TransferFile(filepath.Join(t.TempDir(), "missing"), 0, 16, hostBase, dma.Upload)
	assert.Equal(t, dma.KindLocalIO, dma.KindOf(err))
	assert.Equal(t, 0, host.Opens())
}

func TestChunkerMaxChunkRounding(t *testing.T) {
	assert.Equal(t, uint32(48), dma.NewChunker(nil, 50, nil).MaxChunk())
	assert.Equal(t, uint32(dma.DefaultMaxChunk), dma.NewChunker(nil, 8, nil).MaxChunk())
}

func TestChunkerRejectsRangePastOffsetLimit(t *testing.T) {
	host := dmatest.NewHost(hostBase, 64*1024)
	chunker := dma.NewChunker(newEngine(t, host), 64, nil)
	head := []byte("HEADER-OF-THE-LID-IMAGE")
	path := filepath.Join(t.TempDir(), "image.lid")
	require.NoError(t, os.WriteFile(path, head, 0o644))
	host.Write(hostBase, pattern(128))

	err := chunker.TransferFile(path, 0xFFFFFFC0, 128, hostBase, dma.Download)
	require.ErrorIs(t, err, dma.ErrRangeOverflow)
	assert.Equal(t, dma.KindRange, dma.KindOf(err))
	assert.Equal(t, 0, host.Opens())

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, head, got)

	missing := filepath.Join(t.TempDir(), "never.lid")
	err = chunker.TransferFile(missing, 0xFFFFFFF0, 32, hostBase, dma.Download)
	assert.ErrorIs(t, err, dma.ErrRangeOverflow)
	assert.NoFileExists(t, missing)
}

func TestRangeFits(t *testing.T) {
	assert.True(t, dma.RangeFits(0, 0))
	assert.True(t, dma.RangeFits(0xFFFFFFC0, 0x40))
	assert.False(t, dma.RangeFits(0xFFFFFFC0, 0x41))
	assert.False(t, dma.RangeFits(0xFFFFFFFF, 0xFFFFFFFF))
}
