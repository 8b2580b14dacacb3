package dma

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// Kind classifies where a transfer failed.
type Kind uint8

const (
	// KindDevice: the bridge device could not be opened (e.g. busy).
	KindDevice Kind = iota + 1
	// KindMapping: the device buffer could not be mapped.
	KindMapping
	// KindShortIO: local storage returned fewer bytes than requested.
	KindShortIO
	// KindInterrupted: a syscall in the call returned EINTR.
	KindInterrupted
	// KindTrigger: writing the descriptor record to the device failed.
	KindTrigger
	// KindLocalIO: seek/read/write on local storage failed.
	KindLocalIO
	// KindEndpoint: forwarding the window to a local endpoint failed.
	KindEndpoint
	// KindRange: the requested file range does not fit 32-bit offsets.
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindMapping:
		return "mapping"
	case KindShortIO:
		return "short_io"
	case KindInterrupted:
		return "interrupted"
	case KindTrigger:
		return "trigger"
	case KindLocalIO:
		return "local_io"
	case KindEndpoint:
		return "endpoint"
	case KindRange:
		return "range"
	default:
		return "unknown"
	}
}

var (
	// ErrShortTransfer is wrapped by KindShortIO errors.
	ErrShortTransfer = errors.New("short transfer")

	// ErrRangeOverflow is wrapped by KindRange errors: offset+length is past
	// the last 32-bit file offset.
	ErrRangeOverflow = errors.New("file range overflows 32-bit offsets")
)

// RangeFits reports whether [offset, offset+length) is addressable with
// 32-bit file offsets.
func RangeFits(offset, length uint32) bool {
	return uint64(offset)+uint64(length) <= math.MaxUint32
}

// TransferError is the error type returned by every Engine and Chunker
// entry point.
type TransferError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("dma %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Errno returns the OS error number behind the failure, or 0 when the
// failure did not come from a syscall.
func (e *TransferError) Errno() unix.Errno {
	var errno unix.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

// newError builds a TransferError. EINTR overrides the requested kind so the
// window guard can tell an interrupted call from any other failure.
func newError(kind Kind, op string, err error) *TransferError {
	if errors.Is(err, unix.EINTR) {
		kind = KindInterrupted
	}
	return &TransferError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of a TransferError anywhere in err's chain, or 0.
func KindOf(err error) Kind {
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	return 0
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return KindOf(err).String()
}
