package fileio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/internal/protocol/pldm"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDecodeRWFileMemoryRequest(t *testing.T) {
	payload := concat(le32(7), le32(90), le32(64), le64(0xDEADBEEF00))

	req, cc := DecodeRWFileMemoryRequest(payload)
	require.Equal(t, pldm.Success, cc)
	assert.Equal(t, uint32(7), req.FileHandle)
	assert.Equal(t, uint32(90), req.Offset)
	assert.Equal(t, uint32(64), req.Length)
	assert.Equal(t, uint64(0xDEADBEEF00), req.Address)

	_, cc = DecodeRWFileMemoryRequest(payload[:19])
	assert.Equal(t, pldm.ErrorInvalidLength, cc)

	_, cc = DecodeRWFileMemoryRequest(nil)
	assert.Equal(t, pldm.ErrorInvalidData, cc)
}

func TestDecodeRWFileByTypeMemoryRequest(t *testing.T) {
	payload := concat([]byte{0xFF, 0xFF}, le32(1), le32(0), le32(32), le64(0x1000))

	req, cc := DecodeRWFileByTypeMemoryRequest(payload)
	require.Equal(t, pldm.Success, cc)
	assert.Equal(t, uint16(0xFFFF), req.FileType)
	assert.Equal(t, uint32(1), req.FileHandle)
	assert.Equal(t, uint32(32), req.Length)
	assert.Equal(t, uint64(0x1000), req.Address)
}

func TestDecodeWriteFileRequest(t *testing.T) {
	data := []byte("hello")
	payload := concat(le32(3), le32(4), le32(uint32(len(data))), data)

	req, cc := DecodeWriteFileRequest(payload)
	require.Equal(t, pldm.Success, cc)
	assert.Equal(t, uint32(3), req.FileHandle)
	assert.Equal(t, uint32(4), req.Offset)
	assert.Equal(t, data, req.Data)

	// declared length disagrees with inline data
	_, cc = DecodeWriteFileRequest(concat(le32(3), le32(4), le32(10), data))
	assert.Equal(t, pldm.ErrorInvalidLength, cc)

	_, cc = DecodeWriteFileRequest(payload[:11])
	assert.Equal(t, pldm.ErrorInvalidLength, cc)
}

func TestDecodeWriteFileByTypeRequest(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6}
	payload := concat([]byte{0x0A, 0x00}, le32(9), le32(0), le32(4), data)

	req, cc := DecodeWriteFileByTypeRequest(payload)
	require.Equal(t, pldm.Success, cc)
	assert.Equal(t, uint16(0x0A), req.FileType)
	assert.Equal(t, []byte{1, 2, 3, 4}, req.Data)

	_, cc = DecodeWriteFileByTypeRequest(concat([]byte{0x0A, 0x00}, le32(9), le32(0), le32(40), data))
	assert.Equal(t, pldm.ErrorInvalidLength, cc)
}

func TestDecodeSmallRequests(t *testing.T) {
	ack, cc := DecodeFileAckRequest(concat([]byte{0x03, 0x00}, le32(0x11), []byte{0x01}))
	require.Equal(t, pldm.Success, cc)
	assert.Equal(t, uint16(3), ack.FileType)
	assert.Equal(t, uint32(0x11), ack.FileHandle)
	assert.Equal(t, uint8(1), ack.FileStatus)

	nf, cc := DecodeNewFileAvailableRequest(concat([]byte{0x00, 0x00}, le32(2), le64(4096)))
	require.Equal(t, pldm.Success, cc)
	assert.Equal(t, uint64(4096), nf.Length)

	gft, cc := DecodeGetFileTableRequest([]byte{0, 0, 0, 0, TransferFlagStart, FileAttributeTable})
	require.Equal(t, pldm.Success, cc)
	assert.Equal(t, uint8(FileAttributeTable), gft.TableType)

	alert, cc := DecodeGetAlertStatusRequest([]byte{0x01})
	require.Equal(t, pldm.Success, cc)
	assert.Equal(t, uint8(1), alert.VersionID)
}

func TestEncodeResponses(t *testing.T) {
	b, err := (&LengthResponse{CompletionCode: pldm.Success, Length: 0x10}).Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x10, 0x00, 0x00, 0x00}, b)

	b, err = (&ReadFileResponse{CompletionCode: pldm.Success, Length: 2, Data: []byte{0xAA, 0xBB}}).Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0xAA, 0xBB}, b)

	// failures keep the fixed size and drop the data
	b, err = (&ReadFileResponse{CompletionCode: pldm.InvalidFileHandle, Data: []byte{1}}).Encode()
	require.NoError(t, err)
	assert.Len(t, b, ReadFileRespBytes)
	assert.Equal(t, byte(pldm.InvalidFileHandle), b[0])

	b, err = (&GetAlertStatusResponse{RackEntry: 0xFF000030, PriCecNode: 0x00008030}).Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x30, 0x00, 0x00, 0xFF, 0x30, 0x80, 0x00, 0x00}, b)

	b, err = (&GetFileTableResponse{TransferFlag: TransferFlagStartAndEnd, Data: []byte{9}}).Encode()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0, 0, 0, 0, 0x05, 0x09}, b)
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "READ_FILE_INTO_MEMORY", CommandName(CmdReadFileIntoMemory))
	assert.Equal(t, "UNKNOWN", CommandName(0x77))
}
