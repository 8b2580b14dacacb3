package handlers

import (
	"context"

	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
)

// commandHandler processes one request and always produces a response.
type commandHandler func(h *Handler, ctx context.Context, req *pldm.Request) *pldm.Response

// commandInfo contains metadata about a command for dispatch.
type commandInfo struct {
	// Handler processes the command
	Handler commandHandler
}

// dispatchTable maps command codes to their handlers.
var dispatchTable map[uint8]*commandInfo

func init() {
	dispatchTable = map[uint8]*commandInfo{
		fileio.CmdGetFileTable: {
			Handler: (*Handler).getFileTable,
		},
		fileio.CmdReadFile: {
			Handler: (*Handler).readFile,
		},
		fileio.CmdWriteFile: {
			Handler: (*Handler).writeFile,
		},
		fileio.CmdReadFileIntoMemory: {
			Handler: (*Handler).readFileIntoMemory,
		},
		fileio.CmdWriteFileFromMemory: {
			Handler: (*Handler).writeFileFromMemory,
		},
		fileio.CmdReadFileByTypeIntoMemory: {
			Handler: (*Handler).readFileByTypeIntoMemory,
		},
		fileio.CmdWriteFileByTypeFromMemory: {
			Handler: (*Handler).writeFileByTypeFromMemory,
		},
		fileio.CmdNewFileAvailable: {
			Handler: (*Handler).newFileAvailable,
		},
		fileio.CmdReadFileByType: {
			Handler: (*Handler).readFileByType,
		},
		fileio.CmdWriteFileByType: {
			Handler: (*Handler).writeFileByType,
		},
		fileio.CmdFileAck: {
			Handler: (*Handler).fileAck,
		},
		fileio.CmdGetAlertStatus: {
			Handler: (*Handler).getAlertStatus,
		},
	}
}
