// Package fileio encodes and decodes the payloads of the OEM file I/O
// command set. All multi-byte fields are little endian.
//
// Decoders follow the libpldm convention of returning the decoded fields
// together with a completion code; a code other than pldm.Success is meant
// to be passed through to the requester unchanged.
package fileio

import (
	"encoding/binary"
	"fmt"

	"github.com/go-restruct/restruct"

	"github.com/marmos91/pldmfs/internal/protocol/pldm"
)

func unpack(payload []byte, size int, v any) pldm.CompletionCode {
	if payload == nil {
		return pldm.ErrorInvalidData
	}
	if len(payload) != size {
		return pldm.ErrorInvalidLength
	}
	if err := restruct.Unpack(payload, binary.LittleEndian, v); err != nil {
		return pldm.ErrorInvalidData
	}
	return pldm.Success
}

func pack(v any) ([]byte, error) {
	b, err := restruct.Pack(binary.LittleEndian, v)
	if err != nil {
		return nil, fmt.Errorf("pack %T: %w", v, err)
	}
	return b, nil
}

// ============================================================================
// Get File Table
// ============================================================================

// GetFileTableRequest asks for the table in one part. TransferHandle and
// TransferFlag are decoded but the whole table is always returned.
type GetFileTableRequest struct {
	TransferHandle uint32 `struct:"uint32"`
	TransferFlag   uint8  `struct:"uint8"`
	TableType      uint8  `struct:"uint8"`
}

// DecodeGetFileTableRequest decodes a GET_FILE_TABLE payload.
func DecodeGetFileTableRequest(payload []byte) (*GetFileTableRequest, pldm.CompletionCode) {
	req := &GetFileTableRequest{}
	return req, unpack(payload, GetFileTableReqBytes, req)
}

// GetFileTableResponse carries the attribute table as a single START_AND_END
// part.
type GetFileTableResponse struct {
	CompletionCode     pldm.CompletionCode `struct:"uint8"`
	NextTransferHandle uint32              `struct:"uint32"`
	TransferFlag       uint8               `struct:"uint8"`
	Data               []byte              `struct:"-"`
}

// Encode always emits the fixed part; table data follows only on success.
func (r *GetFileTableResponse) Encode() ([]byte, error) {
	b, err := pack(r)
	if err != nil {
		return nil, err
	}
	if r.CompletionCode == pldm.Success {
		b = append(b, r.Data...)
	}
	return b, nil
}

// ============================================================================
// Read File / Write File
// ============================================================================

// ReadFileRequest is the READ_FILE payload.
type ReadFileRequest struct {
	FileHandle uint32 `struct:"uint32"`
	Offset     uint32 `struct:"uint32"`
	Length     uint32 `struct:"uint32"`
}

// DecodeReadFileRequest decodes a READ_FILE payload.
func DecodeReadFileRequest(payload []byte) (*ReadFileRequest, pldm.CompletionCode) {
	req := &ReadFileRequest{}
	return req, unpack(payload, ReadFileReqBytes, req)
}

// ReadFileResponse is shared by READ_FILE and READ_FILE_BY_TYPE.
type ReadFileResponse struct {
	CompletionCode pldm.CompletionCode `struct:"uint8"`
	Length         uint32              `struct:"uint32"`
	Data           []byte              `struct:"-"`
}

// Encode appends Data only on success.
func (r *ReadFileResponse) Encode() ([]byte, error) {
	b, err := pack(r)
	if err != nil {
		return nil, err
	}
	if r.CompletionCode == pldm.Success {
		b = append(b, r.Data...)
	}
	return b, nil
}

// WriteFileRequest carries Length bytes of inline data after the fixed part.
type WriteFileRequest struct {
	FileHandle uint32 `struct:"uint32"`
	Offset     uint32 `struct:"uint32"`
	Length     uint32 `struct:"uint32"`
	Data       []byte `struct:"-"`
}

// DecodeWriteFileRequest requires the inline data to be exactly Length bytes.
func DecodeWriteFileRequest(payload []byte) (*WriteFileRequest, pldm.CompletionCode) {
	req := &WriteFileRequest{}
	if payload == nil {
		return req, pldm.ErrorInvalidData
	}
	if len(payload) < WriteFileReqBytes {
		return req, pldm.ErrorInvalidLength
	}
	if cc := unpack(payload[:WriteFileReqBytes], WriteFileReqBytes, req); cc != pldm.Success {
		return req, cc
	}
	if uint64(req.Length)+WriteFileReqBytes != uint64(len(payload)) {
		return req, pldm.ErrorInvalidLength
	}
	req.Data = payload[WriteFileReqBytes:]
	return req, pldm.Success
}

// LengthResponse is the {completion code, length} response shared by the
// write and memory commands.
type LengthResponse struct {
	CompletionCode pldm.CompletionCode `struct:"uint8"`
	Length         uint32              `struct:"uint32"`
}

func (r *LengthResponse) Encode() ([]byte, error) {
	return pack(r)
}

// ============================================================================
// Read/Write File Into/From Memory
// ============================================================================

// RWFileMemoryRequest is shared by READ_FILE_INTO_MEMORY and
// WRITE_FILE_FROM_MEMORY. Address is a host physical address.
type RWFileMemoryRequest struct {
	FileHandle uint32 `struct:"uint32"`
	Offset     uint32 `struct:"uint32"`
	Length     uint32 `struct:"uint32"`
	Address    uint64 `struct:"uint64"`
}

// DecodeRWFileMemoryRequest decodes either memory command.
func DecodeRWFileMemoryRequest(payload []byte) (*RWFileMemoryRequest, pldm.CompletionCode) {
	req := &RWFileMemoryRequest{}
	return req, unpack(payload, RWFileMemReqBytes, req)
}

// RWFileByTypeMemoryRequest is RWFileMemoryRequest with a leading file type.
type RWFileByTypeMemoryRequest struct {
	FileType   uint16 `struct:"uint16"`
	FileHandle uint32 `struct:"uint32"`
	Offset     uint32 `struct:"uint32"`
	Length     uint32 `struct:"uint32"`
	Address    uint64 `struct:"uint64"`
}

// DecodeRWFileByTypeMemoryRequest decodes either by-type memory command.
func DecodeRWFileByTypeMemoryRequest(payload []byte) (*RWFileByTypeMemoryRequest, pldm.CompletionCode) {
	req := &RWFileByTypeMemoryRequest{}
	return req, unpack(payload, RWFileByTypeMemReqBytes, req)
}

// ============================================================================
// Read/Write File By Type
// ============================================================================

// RWFileByTypeRequest is the fixed part of READ_FILE_BY_TYPE and
// WRITE_FILE_BY_TYPE. For writes Data holds the inline bytes.
type RWFileByTypeRequest struct {
	FileType   uint16 `struct:"uint16"`
	FileHandle uint32 `struct:"uint32"`
	Offset     uint32 `struct:"uint32"`
	Length     uint32 `struct:"uint32"`
	Data       []byte `struct:"-"`
}

// DecodeReadFileByTypeRequest requires exactly the fixed part.
func DecodeReadFileByTypeRequest(payload []byte) (*RWFileByTypeRequest, pldm.CompletionCode) {
	req := &RWFileByTypeRequest{}
	return req, unpack(payload, RWFileByTypeReqBytes, req)
}

// DecodeWriteFileByTypeRequest accepts trailing data but rejects a Length
// larger than what was actually sent.
func DecodeWriteFileByTypeRequest(payload []byte) (*RWFileByTypeRequest, pldm.CompletionCode) {
	req := &RWFileByTypeRequest{}
	if payload == nil {
		return req, pldm.ErrorInvalidData
	}
	if len(payload) < RWFileByTypeReqBytes {
		return req, pldm.ErrorInvalidLength
	}
	if cc := unpack(payload[:RWFileByTypeReqBytes], RWFileByTypeReqBytes, req); cc != pldm.Success {
		return req, cc
	}
	data := payload[RWFileByTypeReqBytes:]
	if uint64(req.Length) > uint64(len(data)) {
		return req, pldm.ErrorInvalidLength
	}
	req.Data = data[:req.Length]
	return req, pldm.Success
}

// ============================================================================
// New File Available / File Ack
// ============================================================================

// NewFileAvailableRequest announces a host file of Length bytes.
type NewFileAvailableRequest struct {
	FileType   uint16 `struct:"uint16"`
	FileHandle uint32 `struct:"uint32"`
	Length     uint64 `struct:"uint64"`
}

// DecodeNewFileAvailableRequest decodes a NEW_FILE_AVAILABLE payload.
func DecodeNewFileAvailableRequest(payload []byte) (*NewFileAvailableRequest, pldm.CompletionCode) {
	req := &NewFileAvailableRequest{}
	return req, unpack(payload, NewFileReqBytes, req)
}

// FileAckRequest acknowledges a file previously offered by the BMC.
type FileAckRequest struct {
	FileType   uint16 `struct:"uint16"`
	FileHandle uint32 `struct:"uint32"`
	FileStatus uint8  `struct:"uint8"`
}

// DecodeFileAckRequest decodes a FILE_ACK payload.
func DecodeFileAckRequest(payload []byte) (*FileAckRequest, pldm.CompletionCode) {
	req := &FileAckRequest{}
	return req, unpack(payload, FileAckReqBytes, req)
}

// ============================================================================
// Get Alert Status
// ============================================================================

// GetAlertStatusRequest selects the alert status format. Only version 0
// exists.
type GetAlertStatusRequest struct {
	VersionID uint8 `struct:"uint8"`
}

// DecodeGetAlertStatusRequest decodes a GET_ALERT_STATUS payload.
func DecodeGetAlertStatusRequest(payload []byte) (*GetAlertStatusRequest, pldm.CompletionCode) {
	req := &GetAlertStatusRequest{}
	return req, unpack(payload, GetAlertStatusReqBytes, req)
}

// GetAlertStatusResponse reports the rack entry and primary CEC node words.
type GetAlertStatusResponse struct {
	CompletionCode pldm.CompletionCode `struct:"uint8"`
	RackEntry      uint32              `struct:"uint32"`
	PriCecNode     uint32              `struct:"uint32"`
}

func (r *GetAlertStatusResponse) Encode() ([]byte, error) {
	return pack(r)
}
