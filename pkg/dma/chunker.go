package dma

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/marmos91/pldmfs/pkg/metrics"
)

const (
	// MinSize is the transfer granularity: every DMA-backed length must be
	// a multiple of it.
	MinSize = 16

	// DefaultMaxChunk is the largest length handed to one Engine call.
	DefaultMaxChunk = 16 * 1024
)

// Chunker splits transfers that may exceed one engine call into bounded
// calls, advancing offset and address by the chunk size, and stops at the
// first failing chunk.
type Chunker struct {
	engine   Transferer
	maxChunk uint32
	metrics  metrics.DMAMetrics
}

// NewChunker wraps engine. A zero maxChunk selects DefaultMaxChunk; the value
// is rounded down to a multiple of MinSize.
func NewChunker(engine Transferer, maxChunk uint32, m metrics.DMAMetrics) *Chunker {
	if maxChunk < MinSize {
		maxChunk = DefaultMaxChunk
	}
	maxChunk -= maxChunk % MinSize
	if m == nil {
		m = metrics.NewNoopDMAMetrics()
	}
	return &Chunker{engine: engine, maxChunk: maxChunk, metrics: m}
}

// MaxChunk returns the per-call length bound.
func (c *Chunker) MaxChunk() uint32 {
	return c.maxChunk
}

// TransferFile opens path and moves length bytes starting at offset. Uploads
// open the file read-only. Downloads open it read-write, creating it when it
// does not exist yet. The file is closed on every path. A range ending past
// the last 32-bit offset fails with KindRange before the file is opened.
func (c *Chunker) TransferFile(path string, offset, length uint32, address uint64, dir Direction) error {
	if !RangeFits(offset, length) {
		return newError(KindRange, "transfer file",
			fmt.Errorf("%w: offset=%d length=%d", ErrRangeOverflow, offset, length))
	}

	f, err := openLocal(path, dir)
	if err != nil {
		return newError(KindLocalIO, "open", err)
	}
	defer f.Close()

	return c.each(dir, length, func(off, n uint32, addr uint64) error {
		return c.engine.TransferFile(f, offset+off, n, address+addr, dir)
	})
}

// TransferBuffer moves buf in bounded chunks.
func (c *Chunker) TransferBuffer(buf []byte, address uint64, dir Direction) error {
	return c.each(dir, uint32(len(buf)), func(off, n uint32, addr uint64) error {
		return c.engine.TransferBuffer(buf[off:off+n], address+addr, dir)
	})
}

// TransferToEndpoint forwards length bytes of host memory to dst in bounded
// chunks. After a failed chunk dst has already been closed by the engine.
func (c *Chunker) TransferToEndpoint(dst io.WriteCloser, length uint32, address uint64) error {
	return c.each(Download, length, func(off, n uint32, addr uint64) error {
		return c.engine.TransferToEndpoint(dst, n, address+addr)
	})
}

func (c *Chunker) each(dir Direction, length uint32, fn func(off, n uint32, addr uint64) error) error {
	chunks := 0
	defer func() { c.metrics.RecordChunks(dir.String(), chunks) }()

	var off uint32
	for length > c.maxChunk {
		chunks++
		if err := fn(off, c.maxChunk, uint64(off)); err != nil {
			return err
		}
		off += c.maxChunk
		length -= c.maxChunk
	}
	chunks++
	return fn(off, length, uint64(off))
}

func openLocal(path string, dir Direction) (*os.File, error) {
	if dir == Upload {
		return os.OpenFile(path, os.O_RDONLY, 0)
	}
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	}
	return os.OpenFile(path, os.O_RDWR, 0)
}
