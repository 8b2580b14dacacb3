// Package handlers implements the OEM file I/O command set on top of the
// file table, the file-type registry and the DMA orchestrator.
//
// Every command runs the same validation pipeline before touching storage
// or the bridge device:
//
//  1. wire-size check (INVALID_LENGTH)
//  2. decode (codec completion code passed through)
//  3. handle resolution (INVALID_FILE_HANDLE)
//  4. existence check of the backing path (INVALID_FILE_HANDLE)
//  5. bounds check (DATA_OUT_OF_RANGE)
//  6. clamp to end of file (memory and read variants)
//  7. DMA granularity check (INVALID_LENGTH, DMA-backed commands only)
//  8. execute
//  9. encode completion code and transferred length
//
// By-type commands replace steps 3-6 with file-type dispatch; the handler
// of the type performs its own bounds handling.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/filetable"
	"github.com/marmos91/pldmfs/pkg/filetype"
	"github.com/marmos91/pldmfs/pkg/metrics"
)

// ErrNotRequest is returned by Handle for messages without the request bit.
var ErrNotRequest = errors.New("pldm message is not a request")

// AlertStatus holds the telemetry values returned by GET_ALERT_STATUS.
type AlertStatus struct {
	RackEntry  uint32
	PriCecNode uint32
}

// DefaultAlertStatus is reported unless configured otherwise.
var DefaultAlertStatus = AlertStatus{
	RackEntry:  0xFF000030,
	PriCecNode: 0x00008030,
}

// Config wires a Handler.
type Config struct {
	// Table resolves file handles. A nil table behaves as an empty one.
	Table *filetable.Table

	// Registry dispatches by-type commands. Required.
	Registry *filetype.Registry

	// Chunker performs the DMA transfers of the file-table memory commands.
	// Required.
	Chunker *dma.Chunker

	// AlertStatus values. Zero value selects DefaultAlertStatus.
	AlertStatus AlertStatus

	// Metrics receives one observation per command. Default: no-op.
	Metrics metrics.CommandMetrics
}

// Handler answers OEM file I/O requests. It holds no per-request state and
// is safe for concurrent use.
type Handler struct {
	table    *filetable.Table
	registry *filetype.Registry
	chunker  *dma.Chunker
	alert    AlertStatus
	metrics  metrics.CommandMetrics
}

// New returns a Handler for cfg.
func New(cfg Config) (*Handler, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("handlers: file-type registry is required")
	}
	if cfg.Chunker == nil {
		return nil, fmt.Errorf("handlers: chunker is required")
	}
	if cfg.AlertStatus == (AlertStatus{}) {
		cfg.AlertStatus = DefaultAlertStatus
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCommandMetrics()
	}
	return &Handler{
		table:    cfg.Table,
		registry: cfg.Registry,
		chunker:  cfg.Chunker,
		alert:    cfg.AlertStatus,
		metrics:  cfg.Metrics,
	}, nil
}

// Handle decodes msg, runs the command and returns the encoded response
// message. An error is returned only when msg cannot be answered at all
// (truncated header, unsupported header version, not a request).
func (h *Handler) Handle(ctx context.Context, msg []byte) ([]byte, error) {
	req, err := pldm.ParseRequest(msg)
	if err != nil {
		return nil, err
	}
	if !req.Header.Request {
		return nil, ErrNotRequest
	}
	return h.HandleRequest(ctx, req).Bytes(), nil
}

// HandleRequest runs a parsed request through the dispatch table.
func (h *Handler) HandleRequest(ctx context.Context, req *pldm.Request) *pldm.Response {
	start := time.Now()
	cmd := req.Header.Command
	name := fileio.CommandName(cmd)

	var resp *pldm.Response
	switch info, ok := dispatchTable[cmd]; {
	case req.Header.Type != pldm.TypeOEM:
		logger.Debug("%s: rejecting PLDM type 0x%02X", name, req.Header.Type)
		resp = pldm.CCOnlyResponse(req, pldm.ErrorInvalidType)
	case !ok:
		logger.Debug("Unsupported file I/O command: 0x%02X", cmd)
		resp = pldm.CCOnlyResponse(req, pldm.ErrorUnsupportedCommand)
	default:
		if err := ctx.Err(); err != nil {
			logger.Debug("%s: request cancelled: %v", name, err)
			resp = pldm.CCOnlyResponse(req, pldm.ErrorNotReady)
			break
		}
		resp = info.Handler(h, ctx, req)
	}

	cc := resp.CompletionCode()
	h.metrics.RecordCommand(name, cc.String(), time.Since(start))
	return resp
}
