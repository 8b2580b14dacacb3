package fileio

// Command codes of the OEM file I/O command set.
const (
	CmdGetFileTable              = 0x01
	CmdReadFile                  = 0x04
	CmdWriteFile                 = 0x05
	CmdReadFileIntoMemory        = 0x06
	CmdWriteFileFromMemory       = 0x07
	CmdReadFileByTypeIntoMemory  = 0x08
	CmdWriteFileByTypeFromMemory = 0x09
	CmdNewFileAvailable          = 0x0A
	CmdReadFileByType            = 0x0B
	CmdWriteFileByType           = 0x0C
	CmdFileAck                   = 0x0D
	CmdGetAlertStatus            = 0xF0
)

// Request payload sizes. Commands that carry inline data use these as the
// minimum size.
const (
	GetFileTableReqBytes    = 6
	ReadFileReqBytes        = 12
	WriteFileReqBytes       = 12
	RWFileMemReqBytes       = 20
	RWFileByTypeMemReqBytes = 22
	NewFileReqBytes         = 14
	RWFileByTypeReqBytes    = 14
	FileAckReqBytes         = 7
	GetAlertStatusReqBytes  = 1
)

// Response payload sizes (minimum sizes for responses that carry data).
const (
	GetFileTableMinRespBytes = 6
	ReadFileRespBytes        = 5
	WriteFileRespBytes       = 5
	RWFileMemRespBytes       = 5
	RWFileByTypeMemRespBytes = 5
	NewFileRespBytes         = 1
	RWFileByTypeRespBytes    = 5
	FileAckRespBytes         = 1
	GetAlertStatusRespBytes  = 9
)

// File table types.
const (
	FileAttributeTable    = 0
	OEMFileAttributeTable = 1
)

// Multipart transfer flags.
const (
	TransferFlagStart       = 0x01
	TransferFlagMiddle      = 0x02
	TransferFlagEnd         = 0x04
	TransferFlagStartAndEnd = 0x05
)

// CommandName returns the log/metric label of a command code.
func CommandName(cmd uint8) string {
	switch cmd {
	case CmdGetFileTable:
		return "GET_FILE_TABLE"
	case CmdReadFile:
		return "READ_FILE"
	case CmdWriteFile:
		return "WRITE_FILE"
	case CmdReadFileIntoMemory:
		return "READ_FILE_INTO_MEMORY"
	case CmdWriteFileFromMemory:
		return "WRITE_FILE_FROM_MEMORY"
	case CmdReadFileByTypeIntoMemory:
		return "READ_FILE_BY_TYPE_INTO_MEMORY"
	case CmdWriteFileByTypeFromMemory:
		return "WRITE_FILE_BY_TYPE_FROM_MEMORY"
	case CmdNewFileAvailable:
		return "NEW_FILE_AVAILABLE"
	case CmdReadFileByType:
		return "READ_FILE_BY_TYPE"
	case CmdWriteFileByType:
		return "WRITE_FILE_BY_TYPE"
	case CmdFileAck:
		return "FILE_ACK"
	case CmdGetAlertStatus:
		return "GET_ALERT_STATUS"
	default:
		return "UNKNOWN"
	}
}
