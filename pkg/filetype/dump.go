package filetype

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/store/journal"
)

// dumpHandler offloads host dumps. The host announces a dump with
// NewFileAvailable, then pushes it with WriteFromMemory; the data is streamed
// to the dump offload socket without touching local storage.
type dumpHandler struct {
	unsupported
	base
}

func newDumpHandler(deps *Deps, t FileType, handle uint32) Handler {
	return &dumpHandler{base: newBase(deps, t, handle)}
}

func (h *dumpHandler) NewFileAvailable(ctx context.Context, length uint64) error {
	if err := h.record(ctx, journal.EventNewFileAvailable, length); err != nil {
		return err
	}
	h.kickWatchdog()
	logger.Info("%s: dump offered: length=%d", h, length)
	return nil
}

func (h *dumpHandler) WriteFromMemory(ctx context.Context, _, length uint32, address uint64) (uint32, error) {
	conn, err := h.dial(ctx)
	if err != nil {
		return 0, err
	}
	if err := h.deps.Chunker.TransferToEndpoint(conn, length, address); err != nil {
		_ = conn.Close()
		return 0, err
	}
	if err := conn.Close(); err != nil {
		return 0, fmt.Errorf("close dump endpoint: %w", err)
	}
	if err := h.written(ctx, length); err != nil {
		return 0, err
	}
	return length, nil
}

func (h *dumpHandler) Write(ctx context.Context, data []byte, _ uint32) (uint32, error) {
	conn, err := h.dial(ctx)
	if err != nil {
		return 0, err
	}
	_, err = conn.Write(data)
	if cerr := conn.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write dump endpoint: %w", err)
	}
	if err := h.written(ctx, uint32(len(data))); err != nil {
		return 0, err
	}
	return uint32(len(data)), nil
}

func (h *dumpHandler) FileAck(ctx context.Context, status uint8) error {
	return h.acknowledge(ctx, status)
}

func (h *dumpHandler) written(ctx context.Context, n uint32) error {
	h.kickWatchdog()
	return h.record(ctx, journal.EventWrite, uint64(n))
}

func (h *dumpHandler) dial(ctx context.Context) (io.WriteCloser, error) {
	if h.deps.DumpSocket == "" {
		return nil, fmt.Errorf("%w: no dump socket configured", ErrEndpointUnavailable)
	}
	c, err := h.deps.Dial(ctx, h.deps.DumpSocket)
	if err != nil {
		logger.Warn("%s: dial %s: %v", h, h.deps.DumpSocket, err)
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}
	return c, nil
}
