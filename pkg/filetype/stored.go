package filetype

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/store/content"
	"github.com/marmos91/pldmfs/pkg/store/journal"
)

// storedHandler serves file types whose data lives in the content store.
type storedHandler struct {
	base
	id content.ID

	readable  bool
	writable  bool
	journaled bool

	// onWrite runs after data was stored.
	onWrite func(ctx context.Context, data []byte) error
}

func blobID(kind string, handle uint32) content.ID {
	return content.NewID(kind, fmt.Sprintf("%08x", handle))
}

func newPELHandler(deps *Deps, t FileType, handle uint32) Handler {
	return &storedHandler{
		base:      newBase(deps, t, handle),
		id:        blobID("pel", handle),
		readable:  true,
		writable:  true,
		journaled: true,
	}
}

func newCertHandler(deps *Deps, t FileType, handle uint32) Handler {
	h := &storedHandler{base: newBase(deps, t, handle), journaled: true}
	switch t {
	case CertSigningReq:
		h.id = content.NewID("cert", "csr", fmt.Sprintf("%08x", handle))
		h.readable = true
	case SignedCert:
		h.id = content.NewID("cert", "signed", fmt.Sprintf("%08x", handle))
		h.writable = true
	default:
		h.id = content.NewID("cert", "root", fmt.Sprintf("%08x", handle))
		h.writable = true
	}
	return h
}

func newDumpParmsHandler(deps *Deps, t FileType, handle uint32) Handler {
	return &storedHandler{
		base:      newBase(deps, t, handle),
		id:        content.NewID("dump", "params", fmt.Sprintf("%08x", handle)),
		readable:  true,
		journaled: true,
	}
}

func newProgressHandler(deps *Deps, t FileType, handle uint32) Handler {
	h := &storedHandler{
		base:     newBase(deps, t, handle),
		id:       blobID("progress", handle),
		writable: true,
	}
	h.onWrite = func(_ context.Context, data []byte) error {
		deps.Platform.NotifyProgressCode(data)
		return nil
	}
	return h
}

func (h *storedHandler) Read(ctx context.Context, offset, length uint32) ([]byte, error) {
	if !h.readable {
		return nil, ErrNotSupported
	}
	return h.readRange(ctx, offset, length)
}

func (h *storedHandler) ReadIntoMemory(ctx context.Context, offset, length uint32, address uint64) (uint32, error) {
	if !h.readable {
		return 0, ErrNotSupported
	}
	data, err := h.readRange(ctx, offset, length)
	if err != nil {
		return 0, err
	}
	if err := h.upload(data, address); err != nil {
		return 0, err
	}
	logger.Debug("%s: uploaded %d bytes at offset %d to 0x%x", h, len(data), offset, address)
	return uint32(len(data)), nil
}

func (h *storedHandler) Write(ctx context.Context, data []byte, offset uint32) (uint32, error) {
	if err := h.checkWritable(); err != nil {
		return 0, err
	}
	if err := h.store(ctx, data, offset); err != nil {
		return 0, err
	}
	return uint32(len(data)), nil
}

func (h *storedHandler) WriteFromMemory(ctx context.Context, offset, length uint32, address uint64) (uint32, error) {
	if err := h.checkWritable(); err != nil {
		return 0, err
	}
	data, err := h.download(length, address)
	if err != nil {
		return 0, err
	}
	if err := h.store(ctx, data, offset); err != nil {
		return 0, err
	}
	return length, nil
}

func (h *storedHandler) FileAck(ctx context.Context, status uint8) error {
	if !h.journaled {
		return ErrNotSupported
	}
	return h.acknowledge(ctx, status)
}

func (h *storedHandler) NewFileAvailable(ctx context.Context, length uint64) error {
	if !h.journaled {
		return ErrNotSupported
	}
	if err := h.record(ctx, journal.EventNewFileAvailable, length); err != nil {
		return err
	}
	logger.Info("%s: new file available: length=%d", h, length)
	return nil
}

func (h *storedHandler) checkWritable() error {
	if h.writable {
		return nil
	}
	if h.readable {
		return ErrReadOnly
	}
	return ErrNotSupported
}

func (h *storedHandler) readRange(ctx context.Context, offset, length uint32) ([]byte, error) {
	size, err := h.deps.Content.Size(ctx, h.id)
	if errors.Is(err, content.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, h.id)
	}
	if err != nil {
		return nil, err
	}

	length, err = clamp(offset, length, size)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	n, err := h.deps.Content.ReadAt(ctx, h.id, buf, int64(offset))
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		return nil, fmt.Errorf("read %s: %w", h.id, err)
	}
	return buf, nil
}

// store writes data at offset. A write at offset zero starts a new file.
func (h *storedHandler) store(ctx context.Context, data []byte, offset uint32) error {
	var err error
	if offset == 0 {
		err = content.Replace(ctx, h.deps.Content, h.id, data)
	} else {
		err = h.deps.Content.WriteAt(ctx, h.id, data, int64(offset))
	}
	if err != nil {
		return fmt.Errorf("store %s: %w", h.id, err)
	}

	if h.journaled {
		if err := h.record(ctx, journal.EventWrite, uint64(len(data))); err != nil {
			return err
		}
	}
	if h.onWrite != nil {
		if err := h.onWrite(ctx, data); err != nil {
			return err
		}
	}

	logger.Debug("%s: stored %d bytes at offset %d", h, len(data), offset)
	return nil
}
