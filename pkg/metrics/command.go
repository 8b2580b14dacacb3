package metrics

import "time"

// CommandMetrics provides observability for PLDM file I/O command handling.
//
// Implementations receive one observation per handled command. If not
// provided to the command handler, a no-op implementation is used.
type CommandMetrics interface {
	// RecordCommand records a completed command.
	//
	// Parameters:
	//   - command: Command label (e.g., "READ_FILE_INTO_MEMORY")
	//   - completionCode: Completion code label returned to the host
	//   - duration: Time taken to handle the command
	RecordCommand(command string, completionCode string, duration time.Duration)

	// RecordBytes records payload bytes moved by a command.
	//
	// Parameters:
	//   - direction: "upload" (to host) or "download" (from host)
	//   - bytes: Number of bytes moved
	RecordBytes(direction string, bytes int64)
}

// DMAMetrics provides observability for DMA engine calls.
type DMAMetrics interface {
	// RecordTransfer records one engine call.
	//
	// Parameters:
	//   - direction: "upload" or "download"
	//   - outcome: "success" or the failure kind (e.g., "device", "mapping")
	//   - bytes: Requested transfer length
	//   - duration: Time spent in the call
	RecordTransfer(direction string, outcome string, bytes int64, duration time.Duration)

	// RecordChunks records how many engine calls one orchestrated transfer
	// was split into.
	RecordChunks(direction string, chunks int)
}

// ConnectionMetrics provides observability for the socket adapter.
type ConnectionMetrics interface {
	RecordConnectionAccepted()
	RecordConnectionClosed()
	RecordConnectionRejected(reason string)
	SetActiveConnections(count int32)
}

type noopCommandMetrics struct{}

func (noopCommandMetrics) RecordCommand(command string, completionCode string, duration time.Duration) {
}
func (noopCommandMetrics) RecordBytes(direction string, bytes int64) {}

type noopDMAMetrics struct{}

func (noopDMAMetrics) RecordTransfer(direction string, outcome string, bytes int64, duration time.Duration) {
}
func (noopDMAMetrics) RecordChunks(direction string, chunks int) {}

type noopConnectionMetrics struct{}

func (noopConnectionMetrics) RecordConnectionAccepted()              {}
func (noopConnectionMetrics) RecordConnectionClosed()                {}
func (noopConnectionMetrics) RecordConnectionRejected(reason string) {}
func (noopConnectionMetrics) SetActiveConnections(count int32)       {}

// NewNoopCommandMetrics returns a CommandMetrics that discards everything.
func NewNoopCommandMetrics() CommandMetrics { return noopCommandMetrics{} }

// NewNoopDMAMetrics returns a DMAMetrics that discards everything.
func NewNoopDMAMetrics() DMAMetrics { return noopDMAMetrics{} }

// NewNoopConnectionMetrics returns a ConnectionMetrics that discards everything.
func NewNoopConnectionMetrics() ConnectionMetrics { return noopConnectionMetrics{} }
