package handlers

import (
	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
)

type encoder interface {
	Encode() ([]byte, error)
}

// encode packs resp into a response to req. A packing failure degrades to a
// cc-only ERROR response.
func encode(req *pldm.Request, resp encoder) *pldm.Response {
	payload, err := resp.Encode()
	if err != nil {
		logger.Error("%s: encode response: %v", fileio.CommandName(req.Header.Command), err)
		return pldm.CCOnlyResponse(req, pldm.Error)
	}
	return pldm.NewResponse(req, payload)
}

func lengthResponse(req *pldm.Request, cc pldm.CompletionCode, length uint32) *pldm.Response {
	if cc != pldm.Success {
		length = 0
	}
	return encode(req, &fileio.LengthResponse{CompletionCode: cc, Length: length})
}

func readResponse(req *pldm.Request, cc pldm.CompletionCode, data []byte) *pldm.Response {
	if cc != pldm.Success {
		data = nil
	}
	return encode(req, &fileio.ReadFileResponse{CompletionCode: cc, Length: uint32(len(data)), Data: data})
}
