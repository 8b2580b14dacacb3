package pldm

// PLDM types carried in the second header byte.
const (
	// TypeBase is the PLDM messaging control and discovery type (DSP0240)
	TypeBase = 0x00

	// TypeOEM is the OEM-specific type used by the file I/O command set
	TypeOEM = 0x3F
)

// HeaderVersion is the only PLDM header version defined by DSP0240.
const HeaderVersion = 0x00

// MaxInstanceID bounds the 5-bit instance id field.
const MaxInstanceID = 0x1F

// Generic completion codes (DSP0240 table 2).
const (
	Success                 CompletionCode = 0x00
	Error                   CompletionCode = 0x01
	ErrorInvalidData        CompletionCode = 0x02
	ErrorInvalidLength      CompletionCode = 0x03
	ErrorNotReady           CompletionCode = 0x04
	ErrorUnsupportedCommand CompletionCode = 0x05
	ErrorInvalidType        CompletionCode = 0x20
)

// OEM file I/O completion codes.
const (
	InvalidFileHandle    CompletionCode = 0x80
	DataOutOfRange       CompletionCode = 0x81
	InvalidReadLength    CompletionCode = 0x82
	InvalidWriteLength   CompletionCode = 0x83
	FileTableUnavailable CompletionCode = 0x84
	InvalidFileTableType CompletionCode = 0x85
	InvalidFileType      CompletionCode = 0x86
	ReadOnly             CompletionCode = 0x87
)

// HostUnsupportedFormatVersion belongs to the host command set and shares its
// numeric value with DataOutOfRange.
const HostUnsupportedFormatVersion CompletionCode = 0x81
