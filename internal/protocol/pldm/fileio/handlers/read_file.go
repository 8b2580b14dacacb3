package handlers

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
)

// readFile returns file data inline in the response. Reads past the end of
// the file are clamped and the response reports the clamped length.
func (h *Handler) readFile(_ context.Context, req *pldm.Request) *pldm.Response {
	if len(req.Payload) != fileio.ReadFileReqBytes {
		return readResponse(req, pldm.ErrorInvalidLength, nil)
	}

	decoded, cc := fileio.DecodeReadFileRequest(req.Payload)
	if cc != pldm.Success {
		return readResponse(req, cc, nil)
	}

	rng, cc := h.resolveRange("READ_FILE", decoded.FileHandle, decoded.Offset, decoded.Length, true)
	if cc != pldm.Success {
		return readResponse(req, cc, nil)
	}

	data, err := readAt(rng.entry.Path, rng.offset, rng.length)
	if err != nil {
		logger.Error("READ_FILE failed: handle=%d offset=%d length=%d: %v",
			decoded.FileHandle, rng.offset, rng.length, err)
		return readResponse(req, pldm.Error, nil)
	}

	logger.Debug("READ_FILE: handle=%d offset=%d requested=%d returned=%d",
		decoded.FileHandle, decoded.Offset, decoded.Length, len(data))
	h.metrics.RecordBytes("upload", int64(len(data)))
	return readResponse(req, pldm.Success, data)
}

func readAt(path string, offset, length uint32) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, int64(offset))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}
