// Package dma moves data between local storage and host physical memory
// through the XDMA bridge device.
//
// An Engine call performs exactly one hardware-bounded transfer: it opens the
// device, maps a page-aligned window, stages or drains local data around a
// single trigger, and tears everything down again. No state survives between
// calls. The Chunker splits larger transfers into bounded Engine calls.
package dma

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/metrics"
)

// Transferer is the engine contract consumed by the Chunker and by file-type
// handlers.
type Transferer interface {
	// TransferFile moves length bytes between file at offset and host memory
	// at address.
	TransferFile(file io.ReadWriteSeeker, offset, length uint32, address uint64, dir Direction) error

	// TransferBuffer moves len(buf) bytes between buf and host memory.
	// Uploads read buf, downloads fill it.
	TransferBuffer(buf []byte, address uint64, dir Direction) error

	// TransferToEndpoint downloads length bytes from host memory and writes
	// them to w. A failed write closes w.
	TransferToEndpoint(w io.WriteCloser, length uint32, address uint64) error
}

// Config configures an Engine.
type Config struct {
	// DevicePath of the bridge device. Default: DefaultDevicePath.
	DevicePath string

	// PageSize used to align windows. Default: the system page size.
	PageSize int

	// Open opens the device. Default: OpenDevice.
	Open Opener

	// Metrics receives one observation per call. Default: no-op.
	Metrics metrics.DMAMetrics
}

// Engine performs single DMA transfers. It is safe for concurrent use; each
// call opens its own device handle.
type Engine struct {
	path     string
	pageSize int
	open     Opener
	metrics  metrics.DMAMetrics
}

var _ Transferer = (*Engine)(nil)

// NewEngine returns an engine for cfg. Zero fields fall back to
// DefaultDevicePath, the host page size, OpenDevice and no-op metrics.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		path:     cfg.DevicePath,
		pageSize: cfg.PageSize,
		open:     cfg.Open,
		metrics:  cfg.Metrics,
	}
	if e.path == "" {
		e.path = DefaultDevicePath
	}
	if e.pageSize <= 0 {
		e.pageSize = os.Getpagesize()
	}
	if e.open == nil {
		e.open = OpenDevice
	}
	if e.metrics == nil {
		e.metrics = metrics.NewNoopDMAMetrics()
	}
	return e
}

func (e *Engine) windowSize(length uint32) int {
	ps := uint64(e.pageSize)
	return int((uint64(length) + ps - 1) / ps * ps)
}

// TransferFile moves length bytes between file at offset and host memory at
// address. Uploads read the file into the window; downloads write the window
// back to the file.
func (e *Engine) TransferFile(file io.ReadWriteSeeker, offset, length uint32, address uint64, dir Direction) error {
	if dir == Upload {
		return e.run(dir, length, address, func(w *window) error {
			if _, err := file.Seek(int64(offset), io.SeekStart); err != nil {
				return newError(KindLocalIO, "seek", err)
			}

			// staging is zero-padded to the full window
			staging := make([]byte, len(w.mem))
			n, err := io.ReadFull(file, staging[:length])
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					return &TransferError{
						Kind: KindShortIO,
						Op:   "read",
						Err:  fmt.Errorf("%w: read %d of %d bytes at offset %d", ErrShortTransfer, n, length, offset),
					}
				}
				return newError(KindLocalIO, "read", err)
			}
			copy(w.mem, staging)
			return nil
		}, nil)
	}

	return e.run(dir, length, address, nil, func(w *window) error {
		if _, err := file.Seek(int64(offset), io.SeekStart); err != nil {
			return newError(KindLocalIO, "seek", err)
		}
		n, err := file.Write(w.mem[:length])
		if err != nil {
			return newError(KindLocalIO, "write", err)
		}
		if n != int(length) {
			return &TransferError{
				Kind: KindShortIO,
				Op:   "write",
				Err:  fmt.Errorf("%w: wrote %d of %d bytes at offset %d", ErrShortTransfer, n, length, offset),
			}
		}
		return nil
	})
}

// TransferBuffer is TransferFile for an in-memory buffer.
func (e *Engine) TransferBuffer(buf []byte, address uint64, dir Direction) error {
	length := uint32(len(buf))
	if dir == Upload {
		return e.run(dir, length, address, func(w *window) error {
			copy(w.mem, buf)
			return nil
		}, nil)
	}
	return e.run(dir, length, address, nil, func(w *window) error {
		copy(buf, w.mem[:length])
		return nil
	})
}

// TransferToEndpoint downloads length bytes and writes them to dst. dst is
// closed if that write fails.
func (e *Engine) TransferToEndpoint(dst io.WriteCloser, length uint32, address uint64) error {
	return e.run(Download, length, address, nil, func(w *window) error {
		n, err := dst.Write(w.mem[:length])
		if err == nil && n != int(length) {
			err = fmt.Errorf("%w: wrote %d of %d bytes to endpoint", ErrShortTransfer, n, length)
		}
		if err != nil {
			if cerr := dst.Close(); cerr != nil {
				logger.Debug("DMA endpoint close after write failure: %v", cerr)
			}
			return newError(KindEndpoint, "endpoint write", err)
		}
		return nil
	})
}

// run is the common skeleton: open, map, stage (uploads), trigger, drain
// (downloads), release. stage runs before the trigger, drain after it.
func (e *Engine) run(dir Direction, length uint32, address uint64, stage, drain func(*window) error) (err error) {
	start := time.Now()
	defer func() {
		e.metrics.RecordTransfer(dir.String(), outcome(err), int64(length), time.Since(start))
		if err != nil {
			logger.Error("DMA %s failed: address=0x%x length=%d error=%v", dir, address, length, err)
		}
	}()

	if length == 0 {
		return nil
	}

	dev, err := e.open(e.path)
	if err != nil {
		return newError(KindDevice, "open", fmt.Errorf("%s: %w", e.path, err))
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil {
			logger.Debug("DMA device close: %v", cerr)
		}
	}()

	mem, err := dev.Map(e.windowSize(length), dir)
	if err != nil {
		return newError(KindMapping, "mmap", err)
	}
	w := &window{dev: dev, mem: mem}
	defer w.release()

	if stage != nil {
		if err := stage(w); err != nil {
			return w.fail(err)
		}
	}

	if err := dev.Trigger(newDescriptor(address, length, dir)); err != nil {
		return w.fail(newError(KindTrigger, "trigger", err))
	}

	if drain != nil {
		if err := drain(w); err != nil {
			return w.fail(err)
		}
	}

	logger.Debug("DMA %s complete: address=0x%x length=%d window=%d", dir, address, length, len(mem))
	return nil
}
