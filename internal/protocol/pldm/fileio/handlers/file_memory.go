package handlers

import (
	"context"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
	"github.com/marmos91/pldmfs/pkg/dma"
)

// readFileIntoMemory uploads a file-table file into host memory.
func (h *Handler) readFileIntoMemory(_ context.Context, req *pldm.Request) *pldm.Response {
	return h.rwFileMemory(req, "READ_FILE_INTO_MEMORY", dma.Upload)
}

// writeFileFromMemory downloads host memory into a file-table file.
func (h *Handler) writeFileFromMemory(_ context.Context, req *pldm.Request) *pldm.Response {
	return h.rwFileMemory(req, "WRITE_FILE_FROM_MEMORY", dma.Download)
}

// rwFileMemory is the full validation pipeline shared by both memory
// commands. Both directions clamp to the current file size, and the
// granularity check applies to the clamped length.
func (h *Handler) rwFileMemory(req *pldm.Request, op string, dir dma.Direction) *pldm.Response {
	if len(req.Payload) != fileio.RWFileMemReqBytes {
		return lengthResponse(req, pldm.ErrorInvalidLength, 0)
	}

	decoded, cc := fileio.DecodeRWFileMemoryRequest(req.Payload)
	if cc != pldm.Success {
		return lengthResponse(req, cc, 0)
	}

	rng, cc := h.resolveRange(op, decoded.FileHandle, decoded.Offset, decoded.Length, true)
	if cc != pldm.Success {
		return lengthResponse(req, cc, 0)
	}

	if !aligned(rng.length) {
		logger.Debug("%s: length %d is not a multiple of %d: handle=%d", op, rng.length, dma.MinSize, decoded.FileHandle)
		return lengthResponse(req, pldm.ErrorInvalidLength, 0)
	}

	err := h.chunker.TransferFile(rng.entry.Path, rng.offset, rng.length, decoded.Address, dir)
	if err != nil {
		logger.Error("%s failed: handle=%d offset=%d length=%d address=0x%x: %v",
			op, decoded.FileHandle, rng.offset, rng.length, decoded.Address, err)
		return lengthResponse(req, pldm.Error, 0)
	}

	logger.Debug("%s: handle=%d offset=%d length=%d address=0x%x",
		op, decoded.FileHandle, rng.offset, rng.length, decoded.Address)
	h.metrics.RecordBytes(dir.String(), int64(rng.length))
	return lengthResponse(req, pldm.Success, rng.length)
}
