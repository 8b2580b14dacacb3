// Package filetype dispatches OEM file-type requests (the by-type commands,
// new-file-available and file-ack) to per-type handlers.
//
// A Handler is built fresh for every request by a Registry and is bound to a
// single (type, handle) pair. Each handler family implements the subset of
// capabilities meaningful for its file type; the rest return ErrNotSupported.
package filetype

import (
	"context"
	"errors"
	"fmt"
)

// FileType identifies the kind of file a by-type command addresses.
type FileType uint16

const (
	PEL               FileType = 0x0
	LIDPerm           FileType = 0x1
	LIDTemp           FileType = 0x2
	Dump              FileType = 0x3
	CertSigningReq    FileType = 0x4
	SignedCert        FileType = 0x5
	RootCert          FileType = 0x6
	LIDMarker         FileType = 0x7
	ResourceDumpParms FileType = 0x8
	ResourceDump      FileType = 0x9
	ProgressSRC       FileType = 0xA
)

func (t FileType) String() string {
	switch t {
	case PEL:
		return "PEL"
	case LIDPerm:
		return "LID_PERM"
	case LIDTemp:
		return "LID_TEMP"
	case Dump:
		return "DUMP"
	case CertSigningReq:
		return "CERT_SIGNING_REQUEST"
	case SignedCert:
		return "SIGNED_CERT"
	case RootCert:
		return "ROOT_CERT"
	case LIDMarker:
		return "LID_MARKER"
	case ResourceDumpParms:
		return "RESOURCE_DUMP_PARMS"
	case ResourceDump:
		return "RESOURCE_DUMP"
	case ProgressSRC:
		return "PROGRESS_SRC"
	default:
		return fmt.Sprintf("FILE_TYPE_0x%04X", uint16(t))
	}
}

var (
	// ErrUnknownFileType is returned by Dispatch for types with no handler.
	ErrUnknownFileType = errors.New("unknown file type")

	// ErrNotSupported is returned by capabilities a file type does not offer.
	ErrNotSupported = errors.New("operation not supported for file type")

	// ErrOutOfRange indicates an offset at or beyond the end of the file.
	ErrOutOfRange = errors.New("offset out of range")

	// ErrFileNotFound indicates the file behind (type, handle) does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrReadOnly is returned by writes to files the host may only read.
	ErrReadOnly = errors.New("file is read-only")

	// ErrEndpointUnavailable indicates the offload endpoint could not be
	// reached.
	ErrEndpointUnavailable = errors.New("offload endpoint unavailable")
)

// Handler is the capability set of one (type, handle) pair.
//
// Lengths returned alongside a nil error are the byte counts actually moved,
// which may be smaller than requested when a read was clamped to the end of
// the file.
type Handler interface {
	// Read returns up to length bytes at offset.
	Read(ctx context.Context, offset, length uint32) ([]byte, error)

	// Write stores data at offset.
	Write(ctx context.Context, data []byte, offset uint32) (uint32, error)

	// ReadIntoMemory uploads file data at offset into host memory at address.
	ReadIntoMemory(ctx context.Context, offset, length uint32, address uint64) (uint32, error)

	// WriteFromMemory downloads length bytes of host memory at address into
	// the file at offset.
	WriteFromMemory(ctx context.Context, offset, length uint32, address uint64) (uint32, error)

	// FileAck records the host's acknowledgement of a file the BMC offered.
	FileAck(ctx context.Context, status uint8) error

	// NewFileAvailable records that the host has a file of length bytes
	// ready for the BMC.
	NewFileAvailable(ctx context.Context, length uint64) error
}

// unsupported implements every capability as ErrNotSupported. Handler
// families embed it and override what they offer.
type unsupported struct{}

func (unsupported) Read(context.Context, uint32, uint32) ([]byte, error) {
	return nil, ErrNotSupported
}

func (unsupported) Write(context.Context, []byte, uint32) (uint32, error) {
	return 0, ErrNotSupported
}

func (unsupported) ReadIntoMemory(context.Context, uint32, uint32, uint64) (uint32, error) {
	return 0, ErrNotSupported
}

func (unsupported) WriteFromMemory(context.Context, uint32, uint32, uint64) (uint32, error) {
	return 0, ErrNotSupported
}

func (unsupported) FileAck(context.Context, uint8) error {
	return ErrNotSupported
}

func (unsupported) NewFileAvailable(context.Context, uint64) error {
	return ErrNotSupported
}
