package handlers

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/dma/dmatest"
	"github.com/marmos91/pldmfs/pkg/filetable"
	"github.com/marmos91/pldmfs/pkg/filetype"
	"github.com/marmos91/pldmfs/pkg/oem"
	contentmemory "github.com/marmos91/pldmfs/pkg/store/content/memory"
	journalmemory "github.com/marmos91/pldmfs/pkg/store/journal/memory"
)

const hostBase = 0x7000_0000

type fixture struct {
	dir      string
	host     *dmatest.Host
	platform *oem.Default
	metrics  *recordingMetrics
	handler  *Handler
	table    *filetable.Table
}

// newFixture builds a handler over a table whose entries are created with
// the given contents. A nil content leaves the backing path missing.
func newFixture(t *testing.T, files map[uint32][]byte) *fixture {
	t.Helper()
	return newChunkedFixture(t, files, 0)
}

// newChunkedFixture is newFixture with an explicit per-call DMA bound.
func newChunkedFixture(t *testing.T, files map[uint32][]byte, maxChunk uint32) *fixture {
	t.Helper()
	dir := t.TempDir()

	var entries []filetable.Entry
	for handle, data := range files {
		path := filepath.Join(dir, fileName(handle))
		if data != nil {
			require.NoError(t, os.WriteFile(path, data, 0o644))
		}
		entries = append(entries, filetable.Entry{Handle: handle, Path: path})
	}
	table, err := filetable.New(entries)
	require.NoError(t, err)

	host := dmatest.NewHost(hostBase, 256*1024)
	chunker := dma.NewChunker(dma.NewEngine(dma.Config{PageSize: 4096, Open: host.Opener()}), maxChunk, nil)
	platform := oem.NewDefault()
	registry, err := filetype.NewRegistry(filetype.Deps{
		Content:  contentmemory.New(),
		Journal:  journalmemory.New(),
		Chunker:  chunker,
		Platform: platform,
		LIDDir:   filepath.Join(dir, "lid"),
	})
	require.NoError(t, err)

	m := &recordingMetrics{}
	h, err := New(Config{Table: table, Registry: registry, Chunker: chunker, Metrics: m})
	require.NoError(t, err)

	return &fixture{dir: dir, host: host, platform: platform, metrics: m, handler: h, table: table}
}

func fileName(handle uint32) string {
	return fmt.Sprintf("file-%d.bin", handle)
}

func (f *fixture) path(handle uint32) string {
	return filepath.Join(f.dir, fileName(handle))
}

// call sends one OEM request and returns the response header and payload.
func (f *fixture) call(t *testing.T, cmd uint8, payload []byte) (pldm.Header, []byte) {
	t.Helper()
	msg := pldm.NewRequestMessage(5, pldm.TypeOEM, cmd, payload)
	out, err := f.handler.Handle(context.Background(), msg)
	require.NoError(t, err)
	hdr, err := pldm.DecodeHeader(out)
	require.NoError(t, err)
	return hdr, out[pldm.HeaderSize:]
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*13 + 1)
	}
	return b
}

// ============================================================================
// Request builders
// ============================================================================

func le32(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }
func le16(b []byte, v uint16) []byte { return binary.LittleEndian.AppendUint16(b, v) }
func le64(b []byte, v uint64) []byte { return binary.LittleEndian.AppendUint64(b, v) }

func rwFileReq(handle, offset, length uint32) []byte {
	return le32(le32(le32(nil, handle), offset), length)
}

func writeFileReq(handle, offset uint32, data []byte) []byte {
	return append(rwFileReq(handle, offset, uint32(len(data))), data...)
}

func rwMemReq(handle, offset, length uint32, address uint64) []byte {
	return le64(rwFileReq(handle, offset, length), address)
}

func byTypeReq(fileType uint16, handle, offset, length uint32) []byte {
	return le32(le32(le32(le16(nil, fileType), handle), offset), length)
}

func byTypeMemReq(fileType uint16, handle, offset, length uint32, address uint64) []byte {
	return le64(byTypeReq(fileType, handle, offset, length), address)
}

func newFileReq(fileType uint16, handle uint32, length uint64) []byte {
	return le64(le32(le16(nil, fileType), handle), length)
}

func fileAckReq(fileType uint16, handle uint32, status uint8) []byte {
	return append(le32(le16(nil, fileType), handle), status)
}

func lengthOf(payload []byte) uint32 {
	return binary.LittleEndian.Uint32(payload[1:5])
}

// ============================================================================
// Metrics
// ============================================================================

type commandObservation struct {
	command string
	cc      string
}

type recordingMetrics struct {
	mu       sync.Mutex
	commands []commandObservation
	bytes    map[string]int64
}

func (m *recordingMetrics) RecordCommand(command, cc string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, commandObservation{command, cc})
}

func (m *recordingMetrics) RecordBytes(direction string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bytes == nil {
		m.bytes = make(map[string]int64)
	}
	m.bytes[direction] += n
}
