package filetype

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/pkg/dma"
)

// lidHandler serves firmware partitions (LIDs) stored as files under the LID
// directory. Permanent LIDs are read-only; temporary LIDs and markers are
// the staging area of a host-driven code update.
type lidHandler struct {
	unsupported
	base
	path     string
	writable bool
}

func newLIDHandler(deps *Deps, t FileType, handle uint32) Handler {
	sub := "perm"
	switch t {
	case LIDTemp:
		sub = "temp"
	case LIDMarker:
		sub = "marker"
	}
	return &lidHandler{
		base:     newBase(deps, t, handle),
		path:     filepath.Join(deps.LIDDir, sub, fmt.Sprintf("%08X.lid", handle)),
		writable: t != LIDPerm,
	}
}

func (h *lidHandler) size() (int64, error) {
	info, err := os.Stat(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%w: %s", ErrFileNotFound, h.path)
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (h *lidHandler) Read(_ context.Context, offset, length uint32) ([]byte, error) {
	size, err := h.size()
	if err != nil {
		return nil, err
	}
	length, err = clamp(offset, length, size)
	if err != nil {
		return nil, err
	}
	return h.readAt(offset, length)
}

func (h *lidHandler) readAt(offset, length uint32) ([]byte, error) {
	f, err := os.Open(h.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, length)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", h.path, err)
	}
	return buf, nil
}

// ReadIntoMemory streams the file through the DMA engine when the clamped
// length is granule-aligned, and stages a zero-padded copy otherwise.
func (h *lidHandler) ReadIntoMemory(_ context.Context, offset, length uint32, address uint64) (uint32, error) {
	size, err := h.size()
	if err != nil {
		return 0, err
	}
	length, err = clamp(offset, length, size)
	if err != nil {
		return 0, err
	}

	if length%dma.MinSize == 0 {
		err = h.deps.Chunker.TransferFile(h.path, offset, length, address, dma.Upload)
	} else {
		var data []byte
		if data, err = h.readAt(offset, length); err == nil {
			err = h.upload(data, address)
		}
	}
	if err != nil {
		return 0, err
	}
	return length, nil
}

func (h *lidHandler) Write(_ context.Context, data []byte, offset uint32) (uint32, error) {
	if err := h.checkRange(offset, uint32(len(data))); err != nil {
		return 0, err
	}
	if err := h.beginUpdate(); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(h.path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if _, err := f.WriteAt(data, int64(offset)); err != nil {
		return 0, fmt.Errorf("write %s: %w", h.path, err)
	}
	return uint32(len(data)), nil
}

func (h *lidHandler) WriteFromMemory(_ context.Context, offset, length uint32, address uint64) (uint32, error) {
	if err := h.checkRange(offset, length); err != nil {
		return 0, err
	}
	if err := h.beginUpdate(); err != nil {
		return 0, err
	}
	if err := h.deps.Chunker.TransferFile(h.path, offset, length, address, dma.Download); err != nil {
		return 0, err
	}
	return length, nil
}

// FileAck on the marker LID ends the code update that LID writes started.
// Other LID types do not take acknowledgements.
func (h *lidHandler) FileAck(_ context.Context, status uint8) error {
	if h.fileType != LIDMarker {
		return ErrNotSupported
	}
	if h.deps.Platform.CodeUpdateInProgress() {
		h.deps.Platform.SetCodeUpdateInProgress(false)
	}
	logger.Info("%s: code update staging acknowledged: status=%d", h, status)
	return nil
}

// checkRange rejects writes that would run past the last 32-bit offset.
// Writes are not clamped, so nothing else bounds them.
func (h *lidHandler) checkRange(offset, length uint32) error {
	if dma.RangeFits(offset, length) {
		return nil
	}
	return fmt.Errorf("%w: %s offset=%d length=%d", ErrOutOfRange, h, offset, length)
}

// beginUpdate gates writes on BMC readiness and flags the code update.
func (h *lidHandler) beginUpdate() error {
	if !h.writable {
		return ErrReadOnly
	}
	if err := h.deps.Platform.CheckBMCState(); err != nil {
		logger.Warn("%s: write rejected: %v", h, err)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	if !h.deps.Platform.CodeUpdateInProgress() {
		h.deps.Platform.SetCodeUpdateInProgress(true)
	}
	return nil
}
