package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/marmos91/pldmfs/internal/logger"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio/handlers"
	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/filetable"
	"github.com/marmos91/pldmfs/pkg/filetype"
	"github.com/marmos91/pldmfs/pkg/oem"
	"github.com/marmos91/pldmfs/pkg/store/content"
	"github.com/marmos91/pldmfs/pkg/store/journal"
)

// Responder bundles the components built from a Config. Handler is the
// entry point; the rest is exposed for the CLI and for tests.
type Responder struct {
	Table    *filetable.Table
	Content  content.Store
	Journal  journal.Journal
	Platform *oem.Default
	Chunker  *dma.Chunker
	Registry *filetype.Registry
	Handler  *handlers.Handler
}

// ResponderOption customizes BuildResponder.
type ResponderOption func(*responderOptions)

type responderOptions struct {
	opener dma.Opener
	dial   filetype.DialFunc
}

// WithDeviceOpener replaces the bridge device opener, e.g. with a simulated
// host from dmatest.
func WithDeviceOpener(open dma.Opener) ResponderOption {
	return func(o *responderOptions) { o.opener = open }
}

// WithDumpDialer replaces how the dump offload endpoint is reached.
func WithDumpDialer(dial filetype.DialFunc) ResponderOption {
	return func(o *responderOptions) { o.dial = dial }
}

// BuildResponder wires the file table, stores, DMA orchestrator, file-type
// registry and command handler described by cfg. m may be nil.
//
// On error every component created so far is released.
func BuildResponder(ctx context.Context, cfg *Config, m *MetricsResult, opts ...ResponderOption) (_ *Responder, err error) {
	var o responderOptions
	for _, opt := range opts {
		opt(&o)
	}
	if m == nil {
		m = InitializeMetrics(&Config{})
	}

	r := &Responder{}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	if r.Table, err = LoadFileTable(&cfg.FileTable); err != nil {
		return nil, err
	}

	if r.Content, err = CreateContentStore(ctx, &cfg.Content); err != nil {
		return nil, err
	}

	if r.Journal, err = CreateJournal(ctx, &cfg.Journal); err != nil {
		return nil, err
	}

	engine := dma.NewEngine(dma.Config{
		DevicePath: cfg.DMA.DevicePath,
		PageSize:   cfg.DMA.PageSize,
		Open:       o.opener,
		Metrics:    m.DMA,
	})
	r.Chunker = dma.NewChunker(engine, cfg.DMA.MaxChunk, m.DMA)
	r.Platform = oem.NewDefault()

	families := make([]filetype.Family, 0, len(cfg.FileTypes.Families))
	for _, f := range cfg.FileTypes.Families {
		families = append(families, filetype.Family(f))
	}

	r.Registry, err = filetype.NewRegistry(filetype.Deps{
		Content:    r.Content,
		Journal:    r.Journal,
		Chunker:    r.Chunker,
		Platform:   r.Platform,
		LIDDir:     cfg.FileTypes.LIDDir,
		DumpSocket: cfg.FileTypes.DumpSocket,
		Dial:       o.dial,
	}, families...)
	if err != nil {
		return nil, fmt.Errorf("failed to build file-type registry: %w", err)
	}

	r.Handler, err = handlers.New(handlers.Config{
		Table:    r.Table,
		Registry: r.Registry,
		Chunker:  r.Chunker,
		AlertStatus: handlers.AlertStatus{
			RackEntry:  cfg.AlertStatus.RackEntry,
			PriCecNode: cfg.AlertStatus.PriCecNode,
		},
		Metrics: m.Command,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build command handler: %w", err)
	}

	logger.Info("Responder ready: files=%d file_types=%d families=%v device=%s max_chunk=%d",
		r.Table.Len(), len(r.Registry.Types()), cfg.FileTypes.Families,
		cfg.DMA.DevicePath, r.Chunker.MaxChunk())

	return r, nil
}

// Close releases the journal and the content store when they hold
// resources.
func (r *Responder) Close() error {
	var errs []error
	for _, c := range []any{r.Journal, r.Content} {
		if closer, ok := c.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

// LoadFileTable builds the file table from its descriptor. A missing
// descriptor gives an empty table.
func LoadFileTable(cfg *FileTableConfig) (*filetable.Table, error) {
	if cfg.Path == "" {
		return filetable.New(nil)
	}

	if _, err := os.Stat(cfg.Path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("File table descriptor %s not found: serving an empty table", cfg.Path)
		return filetable.New(nil)
	}

	table, err := filetable.Load(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load file table: %w", err)
	}
	return table, nil
}
