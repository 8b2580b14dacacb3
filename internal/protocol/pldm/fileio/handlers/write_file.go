package handlers

import (
	"context"
	"os"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
)

// writeFile stores the inline data of the request at the given offset. The
// offset must fall inside the current file; the write itself may extend it.
func (h *Handler) writeFile(_ context.Context, req *pldm.Request) *pldm.Response {
	if len(req.Payload) < fileio.WriteFileReqBytes {
		return lengthResponse(req, pldm.ErrorInvalidLength, 0)
	}

	decoded, cc := fileio.DecodeWriteFileRequest(req.Payload)
	if cc != pldm.Success {
		return lengthResponse(req, cc, 0)
	}

	rng, cc := h.resolveRange("WRITE_FILE", decoded.FileHandle, decoded.Offset, decoded.Length, false)
	if cc != pldm.Success {
		return lengthResponse(req, cc, 0)
	}

	if err := writeAt(rng.entry.Path, decoded.Data, rng.offset); err != nil {
		logger.Error("WRITE_FILE failed: handle=%d offset=%d length=%d: %v",
			decoded.FileHandle, rng.offset, len(decoded.Data), err)
		return lengthResponse(req, pldm.Error, 0)
	}

	logger.Debug("WRITE_FILE: handle=%d offset=%d length=%d", decoded.FileHandle, rng.offset, len(decoded.Data))
	h.metrics.RecordBytes("download", int64(len(decoded.Data)))
	return lengthResponse(req, pldm.Success, uint32(len(decoded.Data)))
}

func writeAt(path string, data []byte, offset uint32) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteAt(data, int64(offset)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
