package handlers

import (
	"context"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
)

// getFileTable returns the file attribute table in a single transfer.
//
// Only FILE_ATTRIBUTE_TABLE is served; the table is regenerated from the
// current state of the backing files on every call, and an empty table is
// reported as FILE_TABLE_UNAVAILABLE.
func (h *Handler) getFileTable(_ context.Context, req *pldm.Request) *pldm.Response {
	fail := func(cc pldm.CompletionCode) *pldm.Response {
		return encode(req, &fileio.GetFileTableResponse{CompletionCode: cc})
	}

	if len(req.Payload) != fileio.GetFileTableReqBytes {
		return fail(pldm.ErrorInvalidLength)
	}

	decoded, cc := fileio.DecodeGetFileTableRequest(req.Payload)
	if cc != pldm.Success {
		return fail(cc)
	}

	if decoded.TableType != fileio.FileAttributeTable {
		logger.Debug("GET_FILE_TABLE: unsupported table type %d", decoded.TableType)
		return fail(pldm.InvalidFileTableType)
	}

	table := h.table.AttributeTable()
	if len(table) == 0 {
		logger.Warn("GET_FILE_TABLE: file table unavailable")
		return fail(pldm.FileTableUnavailable)
	}

	logger.Debug("GET_FILE_TABLE: %d bytes, %d entries", len(table), h.table.Len())
	return encode(req, &fileio.GetFileTableResponse{
		CompletionCode:     pldm.Success,
		NextTransferHandle: 0,
		TransferFlag:       fileio.TransferFlagStartAndEnd,
		Data:               table,
	})
}
