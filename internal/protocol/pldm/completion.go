package pldm

import "fmt"

// CompletionCode is the status byte that leads every PLDM response payload.
type CompletionCode uint8

// String returns a label suitable for logs and metric labels. Because the
// host and file I/O command sets reuse 0x81, that value is reported as
// DATA_OUT_OF_RANGE; callers that know they are answering a host command
// should label it themselves.
func (c CompletionCode) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case Error:
		return "ERROR"
	case ErrorInvalidData:
		return "ERROR_INVALID_DATA"
	case ErrorInvalidLength:
		return "ERROR_INVALID_LENGTH"
	case ErrorNotReady:
		return "ERROR_NOT_READY"
	case ErrorUnsupportedCommand:
		return "ERROR_UNSUPPORTED_PLDM_CMD"
	case ErrorInvalidType:
		return "ERROR_INVALID_PLDM_TYPE"
	case InvalidFileHandle:
		return "INVALID_FILE_HANDLE"
	case DataOutOfRange:
		return "DATA_OUT_OF_RANGE"
	case InvalidReadLength:
		return "INVALID_READ_LENGTH"
	case InvalidWriteLength:
		return "INVALID_WRITE_LENGTH"
	case FileTableUnavailable:
		return "FILE_TABLE_UNAVAILABLE"
	case InvalidFileTableType:
		return "INVALID_FILE_TABLE_TYPE"
	case InvalidFileType:
		return "INVALID_FILE_TYPE"
	case ReadOnly:
		return "READ_ONLY"
	default:
		return fmt.Sprintf("UNKNOWN_0x%02X", uint8(c))
	}
}
