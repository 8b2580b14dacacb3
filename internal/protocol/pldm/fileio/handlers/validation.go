package handlers

import (
	"errors"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/filetable"
	"github.com/marmos91/pldmfs/pkg/filetype"
	"github.com/marmos91/pldmfs/pkg/oem"
)

// completionFor maps a domain error to the completion code reported to the
// host. Unrecognised errors, including DMA failures other than a range
// overflow, become ERROR.
//
// A handle missing from the table and a handle whose backing path is gone
// are distinct errors but share INVALID_FILE_HANDLE on the wire.
func completionFor(err error) pldm.CompletionCode {
	switch {
	case err == nil:
		return pldm.Success
	case errors.Is(err, filetable.ErrHandleNotFound),
		errors.Is(err, filetable.ErrPathMissing),
		errors.Is(err, filetype.ErrFileNotFound):
		return pldm.InvalidFileHandle
	case errors.Is(err, filetype.ErrUnknownFileType):
		return pldm.InvalidFileType
	case errors.Is(err, filetype.ErrOutOfRange),
		errors.Is(err, dma.ErrRangeOverflow):
		return pldm.DataOutOfRange
	case errors.Is(err, filetype.ErrNotSupported):
		return pldm.ErrorUnsupportedCommand
	case errors.Is(err, filetype.ErrReadOnly):
		return pldm.ReadOnly
	case errors.Is(err, oem.ErrBMCNotReady):
		return pldm.ErrorNotReady
	default:
		return pldm.Error
	}
}

// aligned reports whether length is a multiple of the DMA granularity.
func aligned(length uint32) bool {
	return length%dma.MinSize == 0
}

// fileRange is a resolved and bounds-checked request against the file table.
type fileRange struct {
	entry  filetable.Entry
	size   int64
	offset uint32
	length uint32
}

// resolveRange runs handle resolution, existence, bounds and clamp. With
// clampLength false the requested length is kept as is.
func (h *Handler) resolveRange(op string, handle, offset, length uint32, clampLength bool) (fileRange, pldm.CompletionCode) {
	entry, err := h.table.Resolve(handle)
	if err != nil {
		logger.Debug("%s: handle=%d not in file table", op, handle)
		return fileRange{}, completionFor(err)
	}

	size, err := h.table.Stat(entry)
	if err != nil {
		logger.Warn("%s: handle=%d path=%s: %v", op, handle, entry.Path, err)
		return fileRange{}, completionFor(err)
	}

	if int64(offset) >= size {
		logger.Debug("%s: offset %d beyond size %d: handle=%d", op, offset, size, handle)
		return fileRange{}, pldm.DataOutOfRange
	}

	if clampLength && int64(offset)+int64(length) > size {
		length = uint32(size - int64(offset))
	}

	return fileRange{entry: entry, size: size, offset: offset, length: length}, pldm.Success
}
