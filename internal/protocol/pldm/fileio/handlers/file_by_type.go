package handlers

import (
	"context"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/filetype"
)

// ============================================================================
// Memory variants
// ============================================================================

func (h *Handler) readFileByTypeIntoMemory(ctx context.Context, req *pldm.Request) *pldm.Response {
	return h.rwFileByTypeMemory(ctx, req, "READ_FILE_BY_TYPE_INTO_MEMORY", dma.Upload)
}

func (h *Handler) writeFileByTypeFromMemory(ctx context.Context, req *pldm.Request) *pldm.Response {
	return h.rwFileByTypeMemory(ctx, req, "WRITE_FILE_BY_TYPE_FROM_MEMORY", dma.Download)
}

// rwFileByTypeMemory checks size, decodes, checks granularity and then hands
// the request to the handler of the file type, which owns bounds checking.
// The response reports the length the handler actually moved.
func (h *Handler) rwFileByTypeMemory(ctx context.Context, req *pldm.Request, op string, dir dma.Direction) *pldm.Response {
	if len(req.Payload) != fileio.RWFileByTypeMemReqBytes {
		return lengthResponse(req, pldm.ErrorInvalidLength, 0)
	}

	decoded, cc := fileio.DecodeRWFileByTypeMemoryRequest(req.Payload)
	if cc != pldm.Success {
		return lengthResponse(req, cc, 0)
	}

	if !aligned(decoded.Length) {
		logger.Debug("%s: length %d is not a multiple of %d", op, decoded.Length, dma.MinSize)
		return lengthResponse(req, pldm.ErrorInvalidLength, 0)
	}

	fh, cc := h.dispatch(op, decoded.FileType, decoded.FileHandle)
	if cc != pldm.Success {
		return lengthResponse(req, cc, 0)
	}

	var n uint32
	var err error
	if dir == dma.Upload {
		n, err = fh.ReadIntoMemory(ctx, decoded.Offset, decoded.Length, decoded.Address)
	} else {
		n, err = fh.WriteFromMemory(ctx, decoded.Offset, decoded.Length, decoded.Address)
	}
	if err != nil {
		cc := completionFor(err)
		logger.Warn("%s failed: type=%s handle=%d offset=%d length=%d: %v (%s)",
			op, filetype.FileType(decoded.FileType), decoded.FileHandle, decoded.Offset, decoded.Length, err, cc)
		return lengthResponse(req, cc, 0)
	}

	h.metrics.RecordBytes(dir.String(), int64(n))
	return lengthResponse(req, pldm.Success, n)
}

// ============================================================================
// Inline variants
// ============================================================================

func (h *Handler) readFileByType(ctx context.Context, req *pldm.Request) *pldm.Response {
	if len(req.Payload) != fileio.RWFileByTypeReqBytes {
		return readResponse(req, pldm.ErrorInvalidLength, nil)
	}

	decoded, cc := fileio.DecodeReadFileByTypeRequest(req.Payload)
	if cc != pldm.Success {
		return readResponse(req, cc, nil)
	}

	fh, cc := h.dispatch("READ_FILE_BY_TYPE", decoded.FileType, decoded.FileHandle)
	if cc != pldm.Success {
		return readResponse(req, cc, nil)
	}

	data, err := fh.Read(ctx, decoded.Offset, decoded.Length)
	if err != nil {
		logger.Warn("READ_FILE_BY_TYPE failed: type=%s handle=%d offset=%d: %v",
			filetype.FileType(decoded.FileType), decoded.FileHandle, decoded.Offset, err)
		return readResponse(req, completionFor(err), nil)
	}

	h.metrics.RecordBytes("upload", int64(len(data)))
	return readResponse(req, pldm.Success, data)
}

func (h *Handler) writeFileByType(ctx context.Context, req *pldm.Request) *pldm.Response {
	if len(req.Payload) < fileio.RWFileByTypeReqBytes {
		return lengthResponse(req, pldm.ErrorInvalidLength, 0)
	}

	decoded, cc := fileio.DecodeWriteFileByTypeRequest(req.Payload)
	if cc != pldm.Success {
		return lengthResponse(req, cc, 0)
	}

	fh, cc := h.dispatch("WRITE_FILE_BY_TYPE", decoded.FileType, decoded.FileHandle)
	if cc != pldm.Success {
		return lengthResponse(req, cc, 0)
	}

	n, err := fh.Write(ctx, decoded.Data, decoded.Offset)
	if err != nil {
		logger.Warn("WRITE_FILE_BY_TYPE failed: type=%s handle=%d offset=%d length=%d: %v",
			filetype.FileType(decoded.FileType), decoded.FileHandle, decoded.Offset, len(decoded.Data), err)
		return lengthResponse(req, completionFor(err), 0)
	}

	h.metrics.RecordBytes("download", int64(n))
	return lengthResponse(req, pldm.Success, n)
}

// ============================================================================
// Notifications
// ============================================================================

func (h *Handler) newFileAvailable(ctx context.Context, req *pldm.Request) *pldm.Response {
	if len(req.Payload) != fileio.NewFileReqBytes {
		return pldm.CCOnlyResponse(req, pldm.ErrorInvalidLength)
	}

	decoded, cc := fileio.DecodeNewFileAvailableRequest(req.Payload)
	if cc != pldm.Success {
		return pldm.CCOnlyResponse(req, cc)
	}

	fh, cc := h.dispatch("NEW_FILE_AVAILABLE", decoded.FileType, decoded.FileHandle)
	if cc != pldm.Success {
		return pldm.CCOnlyResponse(req, cc)
	}

	if err := fh.NewFileAvailable(ctx, decoded.Length); err != nil {
		logger.Warn("NEW_FILE_AVAILABLE failed: type=%s handle=%d length=%d: %v",
			filetype.FileType(decoded.FileType), decoded.FileHandle, decoded.Length, err)
		return pldm.CCOnlyResponse(req, completionFor(err))
	}
	return pldm.CCOnlyResponse(req, pldm.Success)
}

func (h *Handler) fileAck(ctx context.Context, req *pldm.Request) *pldm.Response {
	if len(req.Payload) != fileio.FileAckReqBytes {
		return pldm.CCOnlyResponse(req, pldm.ErrorInvalidLength)
	}

	decoded, cc := fileio.DecodeFileAckRequest(req.Payload)
	if cc != pldm.Success {
		return pldm.CCOnlyResponse(req, cc)
	}

	fh, cc := h.dispatch("FILE_ACK", decoded.FileType, decoded.FileHandle)
	if cc != pldm.Success {
		return pldm.CCOnlyResponse(req, cc)
	}

	if err := fh.FileAck(ctx, decoded.FileStatus); err != nil {
		logger.Warn("FILE_ACK failed: type=%s handle=%d status=%d: %v",
			filetype.FileType(decoded.FileType), decoded.FileHandle, decoded.FileStatus, err)
		return pldm.CCOnlyResponse(req, completionFor(err))
	}
	return pldm.CCOnlyResponse(req, pldm.Success)
}

// dispatch resolves the handler of (fileType, handle). Unknown types map to
// INVALID_FILE_TYPE whatever the handle.
func (h *Handler) dispatch(op string, fileType uint16, handle uint32) (filetype.Handler, pldm.CompletionCode) {
	fh, err := h.registry.Dispatch(filetype.FileType(fileType), handle)
	if err != nil {
		logger.Debug("%s: %v", op, err)
		return nil, completionFor(err)
	}
	return fh, pldm.Success
}
