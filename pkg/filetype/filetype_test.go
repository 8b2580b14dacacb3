package filetype_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/pkg/dma"
	"github.com/marmos91/pldmfs/pkg/dma/dmatest"
	"github.com/marmos91/pldmfs/pkg/filetype"
	"github.com/marmos91/pldmfs/pkg/oem"
	"github.com/marmos91/pldmfs/pkg/store/content"
	contentmemory "github.com/marmos91/pldmfs/pkg/store/content/memory"
	"github.com/marmos91/pldmfs/pkg/store/journal"
	journalmemory "github.com/marmos91/pldmfs/pkg/store/journal/memory"
)

const hostBase = 0x9000_0000

type fixture struct {
	host     *dmatest.Host
	content  *contentmemory.Store
	journal  *journalmemory.Journal
	platform *oem.Default
	lidDir   string
	endpoint *endpoint
	registry *filetype.Registry
}

type endpoint struct {
	bytes.Buffer
	closed bool
}

func (e *endpoint) Close() error {
	e.closed = true
	return nil
}

func newFixture(t *testing.T, families ...filetype.Family) *fixture {
	t.Helper()
	f := &fixture{
		host:     dmatest.NewHost(hostBase, 256*1024),
		content:  contentmemory.New(),
		journal:  journalmemory.New(),
		platform: oem.NewDefault(),
		lidDir:   t.TempDir(),
		endpoint: &endpoint{},
	}
	engine := dma.NewEngine(dma.Config{PageSize: 4096, Open: f.host.Opener()})
	reg, err := filetype.NewRegistry(filetype.Deps{
		Content:    f.content,
		Journal:    f.journal,
		Chunker:    dma.NewChunker(engine, 64, nil),
		Platform:   f.platform,
		LIDDir:     f.lidDir,
		DumpSocket: "/run/dump.sock",
		Dial: func(_ context.Context, path string) (io.WriteCloser, error) {
			return f.endpoint, nil
		},
	}, families...)
	require.NoError(t, err)
	f.registry = reg
	return f
}

func (f *fixture) handler(t *testing.T, ft filetype.FileType, handle uint32) filetype.Handler {
	t.Helper()
	h, err := f.registry.Dispatch(ft, handle)
	require.NoError(t, err)
	return h
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func TestDispatchUnknownType(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.Dispatch(filetype.FileType(0xFFFF), 1)
	assert.ErrorIs(t, err, filetype.ErrUnknownFileType)
}

func TestRegistryFamilies(t *testing.T) {
	f := newFixture(t, filetype.FamilyPEL)
	assert.Equal(t, []filetype.FileType{filetype.PEL}, f.registry.Types())

	_, err := f.registry.Dispatch(filetype.LIDPerm, 1)
	assert.ErrorIs(t, err, filetype.ErrUnknownFileType)

	_, err = filetype.NewRegistry(filetype.Deps{
		Content: contentmemory.New(),
		Journal: journalmemory.New(),
		Chunker: dma.NewChunker(dma.NewEngine(dma.Config{}), 0, nil),
	}, filetype.Family("bogus"))
	assert.Error(t, err)
}

func TestRegistryRequiresChunker(t *testing.T) {
	_, err := filetype.NewRegistry(filetype.Deps{
		Content: contentmemory.New(),
		Journal: journalmemory.New(),
	})
	assert.Error(t, err)
}

func TestDispatchBuildsFreshHandlers(t *testing.T) {
	f := newFixture(t)
	a := f.handler(t, filetype.PEL, 1)
	b := f.handler(t, filetype.PEL, 1)
	assert.NotSame(t, a, b)
}

func TestPELWriteThenRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pel := pattern(32)
	f.host.Write(hostBase, pel)

	h := f.handler(t, filetype.PEL, 7)
	n, err := h.WriteFromMemory(ctx, 0, 32, hostBase)
	require.NoError(t, err)
	assert.Equal(t, uint32(32), n)

	stored, err := content.ReadAll(ctx, f.content, content.NewID("pel", "00000007"))
	require.NoError(t, err)
	assert.Equal(t, pel, stored)

	n, err = h.ReadIntoMemory(ctx, 16, 32, hostBase+0x1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), n, "clamped to end of file")
	assert.Equal(t, pel[16:], f.host.Read(hostBase+0x1000, 16))

	data, err := h.Read(ctx, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, pel[8:16], data)

	records, err := f.journal.List(ctx, uint16(filetype.PEL), 7)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, journal.EventWrite, records[0].Event)
}

func TestPELOutOfRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.handler(t, filetype.PEL, 1)
	_, err := h.Write(ctx, pattern(32), 0)
	require.NoError(t, err)

	_, err = h.Read(ctx, 32, 16)
	assert.ErrorIs(t, err, filetype.ErrOutOfRange)

	_, err = h.ReadIntoMemory(ctx, 64, 16, hostBase)
	assert.ErrorIs(t, err, filetype.ErrOutOfRange)
	assert.Empty(t, f.host.Triggers())
}

func TestPELNewFileAvailableAndAck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.handler(t, filetype.PEL, 3).NewFileAvailable(ctx, 4096))
	require.NoError(t, f.handler(t, filetype.PEL, 3).FileAck(ctx, 0))

	records, err := f.journal.List(ctx, uint16(filetype.PEL), 3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, journal.EventNewFileAvailable, records[0].Event)
	assert.Equal(t, uint64(4096), records[0].Length)
	assert.True(t, records[0].Acked)
}

func TestStoredFileMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.handler(t, filetype.CertSigningReq, 9).Read(context.Background(), 0, 16)
	assert.ErrorIs(t, err, filetype.ErrFileNotFound)
}

func TestCertCapabilities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	csr := []byte("-----BEGIN CERTIFICATE REQUEST-----")
	require.NoError(t, f.content.WriteAt(ctx, content.NewID("cert", "csr", "00000002"), csr, 0))

	got, err := f.handler(t, filetype.CertSigningReq, 2).Read(ctx, 0, 1024)
	require.NoError(t, err)
	assert.Equal(t, csr, got)

	_, err = f.handler(t, filetype.CertSigningReq, 2).Write(ctx, []byte("x"), 0)
	assert.ErrorIs(t, err, filetype.ErrReadOnly)

	_, err = f.handler(t, filetype.SignedCert, 2).Write(ctx, []byte("signed"), 0)
	require.NoError(t, err)
	_, err = f.handler(t, filetype.SignedCert, 2).Read(ctx, 0, 16)
	assert.ErrorIs(t, err, filetype.ErrNotSupported)

	exists, err := f.content.Exists(ctx, content.NewID("cert", "signed", "00000002"))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProgressCodeNotifiesPlatform(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	code := []byte{0xC1, 0x00, 0x20, 0x04, 0x00, 0x00, 0x00, 0x00}

	n, err := f.handler(t, filetype.ProgressSRC, 0).Write(ctx, code, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(code)), n)

	got, seen := f.platform.ProgressCode()
	assert.Equal(t, code, got)
	assert.Equal(t, uint64(1), seen)

	assert.ErrorIs(t, f.handler(t, filetype.ProgressSRC, 0).FileAck(ctx, 0), filetype.ErrNotSupported)
}

func writeLID(t *testing.T, dir, sub string, handle string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, sub, handle+".lid")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLIDReadIntoMemory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	data := pattern(100)
	writeLID(t, f.lidDir, "perm", "0000000A", data)
	h := f.handler(t, filetype.LIDPerm, 0xA)

	n, err := h.ReadIntoMemory(ctx, 0, 64, hostBase)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), n)
	assert.Equal(t, data[:64], f.host.Read(hostBase, 64))

	n, err = h.ReadIntoMemory(ctx, 64, 64, hostBase+0x2000)
	require.NoError(t, err)
	assert.Equal(t, uint32(36), n)
	assert.Equal(t, data[64:], f.host.Read(hostBase+0x2000, 36))

	last := f.host.Triggers()[len(f.host.Triggers())-1]
	assert.Equal(t, uint32(48), last.Length, "unaligned tail is padded to the granule")
}

func TestLIDPermIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.handler(t, filetype.LIDPerm, 1)

	_, err := h.Write(ctx, []byte("x"), 0)
	assert.ErrorIs(t, err, filetype.ErrReadOnly)
	_, err = h.WriteFromMemory(ctx, 0, 16, hostBase)
	assert.ErrorIs(t, err, filetype.ErrReadOnly)
}

func TestLIDTempWriteFromMemory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	image := pattern(128)
	f.host.Write(hostBase, image)

	n, err := f.handler(t, filetype.LIDTemp, 0x81e00100).WriteFromMemory(ctx, 0, 128, hostBase)
	require.NoError(t, err)
	assert.Equal(t, uint32(128), n)

	got, err := os.ReadFile(filepath.Join(f.lidDir, "temp", "81E00100.lid"))
	require.NoError(t, err)
	assert.Equal(t, image, got)
	assert.True(t, f.platform.CodeUpdateInProgress())
}

func TestLIDWriteRejectsOffsetOverflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	head := []byte("HEADER-OF-THE-LID-IMAGE")
	path := writeLID(t, f.lidDir, "temp", "00000002", head)
	f.host.Write(hostBase, pattern(128))
	h := f.handler(t, filetype.LIDTemp, 2)

	n, err := h.WriteFromMemory(ctx, 0xFFFFFFC0, 128, hostBase)
	assert.ErrorIs(t, err, filetype.ErrOutOfRange)
	assert.Zero(t, n)

	_, err = h.Write(ctx, []byte("tail"), 0xFFFFFFFE)
	assert.ErrorIs(t, err, filetype.ErrOutOfRange)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, head, got)
	assert.Empty(t, f.host.Triggers())
	assert.False(t, f.platform.CodeUpdateInProgress())
}

func TestLIDMarkerAckEndsCodeUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.handler(t, filetype.LIDTemp, 3).Write(ctx, []byte("image"), 0)
	require.NoError(t, err)
	require.True(t, f.platform.CodeUpdateInProgress())

	assert.ErrorIs(t, f.handler(t, filetype.LIDTemp, 3).FileAck(ctx, 0), filetype.ErrNotSupported)
	assert.True(t, f.platform.CodeUpdateInProgress())

	require.NoError(t, f.handler(t, filetype.LIDMarker, 3).FileAck(ctx, 0))
	assert.False(t, f.platform.CodeUpdateInProgress())
}

func TestLIDWriteRequiresReadyBMC(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.platform.SetBMCReady(false)

	_, err := f.handler(t, filetype.LIDTemp, 1).Write(ctx, []byte("lid"), 0)
	assert.ErrorIs(t, err, oem.ErrBMCNotReady)
	assert.NoFileExists(t, filepath.Join(f.lidDir, "temp", "00000001.lid"))
	assert.False(t, f.platform.CodeUpdateInProgress())
}

func TestLIDMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.handler(t, filetype.LIDMarker, 5).Read(context.Background(), 0, 16)
	assert.ErrorIs(t, err, filetype.ErrFileNotFound)
}

func TestDumpOffload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dump := pattern(160)
	f.host.Write(hostBase, dump)

	require.NoError(t, f.handler(t, filetype.Dump, 4).NewFileAvailable(ctx, 160))
	resets, _ := f.platform.WatchdogResets()
	assert.Equal(t, uint64(1), resets)

	n, err := f.handler(t, filetype.Dump, 4).WriteFromMemory(ctx, 0, 160, hostBase)
	require.NoError(t, err)
	assert.Equal(t, uint32(160), n)
	assert.Equal(t, dump, f.endpoint.Bytes())
	assert.True(t, f.endpoint.closed)
	assert.Len(t, f.host.Triggers(), 3, "chunked by 64")

	require.NoError(t, f.handler(t, filetype.Dump, 4).FileAck(ctx, 0))

	records, err := f.journal.List(ctx, uint16(filetype.Dump), 4)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, journal.EventNewFileAvailable, records[0].Event)
	assert.Equal(t, journal.EventWrite, records[1].Event)
	assert.True(t, records[1].Acked)

	_, err = f.handler(t, filetype.Dump, 4).Read(ctx, 0, 16)
	assert.ErrorIs(t, err, filetype.ErrNotSupported)
}

func TestDumpEndpointUnavailable(t *testing.T) {
	ctx := context.Background()
	engine := dma.NewEngine(dma.Config{PageSize: 4096, Open: dmatest.NewHost(hostBase, 4096).Opener()})
	deps := filetype.Deps{
		Content: contentmemory.New(),
		Journal: journalmemory.New(),
		Chunker: dma.NewChunker(engine, 0, nil),
	}

	reg, err := filetype.NewRegistry(deps, filetype.FamilyDump)
	require.NoError(t, err)
	h, err := reg.Dispatch(filetype.Dump, 1)
	require.NoError(t, err)
	_, err = h.WriteFromMemory(ctx, 0, 16, hostBase)
	assert.ErrorIs(t, err, filetype.ErrEndpointUnavailable)

	deps.DumpSocket = "/run/dump.sock"
	deps.Dial = func(context.Context, string) (io.WriteCloser, error) {
		return nil, errors.New("connection refused")
	}
	reg, err = filetype.NewRegistry(deps, filetype.FamilyDump)
	require.NoError(t, err)
	h, err = reg.Dispatch(filetype.ResourceDump, 1)
	require.NoError(t, err)
	_, err = h.Write(ctx, []byte("dump"), 0)
	assert.ErrorIs(t, err, filetype.ErrEndpointUnavailable)
}
