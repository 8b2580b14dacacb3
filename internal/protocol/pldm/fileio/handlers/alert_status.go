package handlers

import (
	"context"

	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
)

// getAlertStatus reports the configured rack entry and primary CEC node
// values. Only version 0 of the request is understood.
func (h *Handler) getAlertStatus(_ context.Context, req *pldm.Request) *pldm.Response {
	if len(req.Payload) != fileio.GetAlertStatusReqBytes {
		return pldm.CCOnlyResponse(req, pldm.ErrorInvalidLength)
	}

	decoded, cc := fileio.DecodeGetAlertStatusRequest(req.Payload)
	if cc != pldm.Success {
		return pldm.CCOnlyResponse(req, cc)
	}

	if decoded.VersionID != 0 {
		return pldm.CCOnlyResponse(req, pldm.HostUnsupportedFormatVersion)
	}

	return encode(req, &fileio.GetAlertStatusResponse{
		CompletionCode: pldm.Success,
		RackEntry:      h.alert.RackEntry,
		PriCecNode:     h.alert.PriCecNode,
	})
}
