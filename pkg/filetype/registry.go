package filetype

import (
	"context"
	"fmt"
	"io"
	"net"
	"sort"

	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/oem"
	"github.com/marmos91/pldmfs/pkg/store/content"
	"github.com/marmos91/pldmfs/pkg/store/journal"
)

// DialFunc connects to a local offload endpoint.
type DialFunc func(ctx context.Context, path string) (io.WriteCloser, error)

// Deps are the collaborators shared by every handler.
type Deps struct {
	// Content keeps host-pushed and BMC-provided files.
	Content content.Store

	// Journal records notifications and acknowledgements.
	Journal journal.Journal

	// Chunker moves data to and from host memory.
	Chunker *dma.Chunker

	// Platform receives side-effect notifications.
	Platform oem.PlatformHandler

	// LIDDir is the root of the firmware partition tree.
	LIDDir string

	// DumpSocket is the unix socket dumps are offloaded to.
	DumpSocket string

	// Dial opens the dump offload endpoint. Default: unix socket dial.
	Dial DialFunc
}

// Factory builds the handler of one (type, handle) pair.
type Factory func(deps *Deps, t FileType, handle uint32) Handler

// Family names a group of related file types that can be enabled together.
type Family string

const (
	FamilyPEL      Family = "pel"
	FamilyLID      Family = "lid"
	FamilyDump     Family = "dump"
	FamilyCert     Family = "cert"
	FamilyProgress Family = "progress"
)

// Families lists every known family.
func Families() []Family {
	return []Family{FamilyPEL, FamilyLID, FamilyDump, FamilyCert, FamilyProgress}
}

var familyTypes = map[Family]map[FileType]Factory{
	FamilyPEL: {
		PEL: newPELHandler,
	},
	FamilyLID: {
		LIDPerm:   newLIDHandler,
		LIDTemp:   newLIDHandler,
		LIDMarker: newLIDHandler,
	},
	FamilyDump: {
		Dump:              newDumpHandler,
		ResourceDump:      newDumpHandler,
		ResourceDumpParms: newDumpParmsHandler,
	},
	FamilyCert: {
		CertSigningReq: newCertHandler,
		SignedCert:     newCertHandler,
		RootCert:       newCertHandler,
	},
	FamilyProgress: {
		ProgressSRC: newProgressHandler,
	},
}

// Registry maps file types to handler factories.
type Registry struct {
	deps      Deps
	factories map[FileType]Factory
}

// NewRegistry registers the factories of the given families, or of every
// family when none is given. Deps.Chunker is required.
func NewRegistry(deps Deps, families ...Family) (*Registry, error) {
	if deps.Chunker == nil {
		return nil, fmt.Errorf("filetype: chunker is required")
	}
	if deps.Content == nil {
		return nil, fmt.Errorf("filetype: content store is required")
	}
	if deps.Journal == nil {
		return nil, fmt.Errorf("filetype: journal is required")
	}
	if deps.Platform == nil {
		deps.Platform = oem.NewDefault()
	}
	if deps.Dial == nil {
		deps.Dial = dialUnix
	}
	if len(families) == 0 {
		families = Families()
	}

	r := &Registry{deps: deps, factories: make(map[FileType]Factory)}
	for _, f := range families {
		types, ok := familyTypes[f]
		if !ok {
			return nil, fmt.Errorf("filetype: unknown family %q", f)
		}
		for t, factory := range types {
			r.factories[t] = factory
		}
	}
	return r, nil
}

// Dispatch returns a fresh handler bound to (t, handle).
func (r *Registry) Dispatch(t FileType, handle uint32) (Handler, error) {
	f, ok := r.factories[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileType, t)
	}
	return f(&r.deps, t, handle), nil
}

// Types returns the registered file types in ascending order.
func (r *Registry) Types() []FileType {
	types := make([]FileType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func dialUnix(ctx context.Context, path string) (io.WriteCloser, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
