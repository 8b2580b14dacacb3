package filetable

import (
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	table, err := New([]Entry{
		{Handle: 7, Path: "/tmp/a", Traits: TraitReadOnly},
		{Handle: 2, Path: "/tmp/b"},
	})
	require.NoError(t, err)

	e, err := table.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a", e.Path)
	assert.Equal(t, TraitReadOnly, e.Traits)

	_, err = table.Resolve(99)
	assert.ErrorIs(t, err, ErrHandleNotFound)

	entries := table.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(7), entries[0].Handle, "descriptor order is kept")
	assert.Equal(t, 2, table.Len())
}

func TestResolveOnNilTable(t *testing.T) {
	var table *Table
	_, err := table.Resolve(0)
	assert.ErrorIs(t, err, ErrHandleNotFound)
	assert.Equal(t, 0, table.Len())
}

func TestNewRejectsDuplicateHandles(t *testing.T) {
	_, err := New([]Entry{{Handle: 1, Path: "a"}, {Handle: 1, Path: "b"}})
	assert.ErrorIs(t, err, ErrDuplicateHandle)
}

func TestStatDistinguishesMissingPath(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	require.NoError(t, os.WriteFile(present, make([]byte, 100), 0o644))

	table, err := New([]Entry{
		{Handle: 0, Path: present},
		{Handle: 1, Path: filepath.Join(dir, "gone")},
	})
	require.NoError(t, err)

	e, err := table.Resolve(0)
	require.NoError(t, err)
	size, err := table.Stat(e)
	require.NoError(t, err)
	assert.Equal(t, int64(100), size)

	e, err = table.Resolve(1)
	require.NoError(t, err, "missing backing path still resolves")
	_, err = table.Stat(e)
	assert.ErrorIs(t, err, ErrPathMissing)
	assert.NotErrorIs(t, err, ErrHandleNotFound)
}

func TestLoadDescriptor(t *testing.T) {
	dir := t.TempDir()
	desc := filepath.Join(dir, "files.yaml")
	require.NoError(t, os.WriteFile(desc, []byte(`
files:
  - path: /var/lib/pldm/bootlog
    file_traits: 1
  - path: /var/lib/pldm/inventory
    file_traits: 3
    handle: 7
`), 0o644))

	table, err := Load(desc)
	require.NoError(t, err)

	e, err := table.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/pldm/bootlog", e.Path)
	assert.Equal(t, uint32(1), e.Traits)

	e, err = table.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), e.Traits)
}

func TestLoadJSONDescriptor(t *testing.T) {
	desc := filepath.Join(t.TempDir(), "files.json")
	require.NoError(t, os.WriteFile(desc, []byte(`{"files":[{"path":"/a","file_traits":0},{"path":"/b","file_traits":2}]}`), 0o644))

	table, err := Load(desc)
	require.NoError(t, err)
	e, err := table.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "/b", e.Path)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	dup := filepath.Join(dir, "dup.yaml")
	require.NoError(t, os.WriteFile(dup, []byte("files:\n  - path: /a\n    handle: 1\n  - path: /b\n"), 0o644))
	_, err = Load(dup)
	assert.ErrorIs(t, err, ErrDuplicateHandle)

	nopath := filepath.Join(dir, "nopath.yaml")
	require.NoError(t, os.WriteFile(nopath, []byte("files:\n  - file_traits: 1\n"), 0o644))
	_, err = Load(nopath)
	assert.Error(t, err)
}

func TestProviderLoadsOnce(t *testing.T) {
	desc := filepath.Join(t.TempDir(), "files.yaml")
	require.NoError(t, os.WriteFile(desc, []byte("files:\n  - path: /a\n"), 0o644))
	p := NewProvider(desc)

	var wg sync.WaitGroup
	tables := make([]*Table, 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tbl, err := p.Table()
			assert.NoError(t, err)
			tables[i] = tbl
		}(i)
	}
	wg.Wait()

	for _, tbl := range tables {
		assert.Same(t, tables[0], tbl)
	}

	// later descriptor changes are not picked up
	require.NoError(t, os.WriteFile(desc, []byte("files: []\n"), 0o644))
	tbl, err := p.Table()
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestAttributeTable(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "abc")
	require.NoError(t, os.WriteFile(a, make([]byte, 100), 0o644))

	table, err := New([]Entry{
		{Handle: 7, Path: a, Traits: TraitPreserveOnReset},
		{Handle: 8, Path: filepath.Join(dir, "missing")},
	})
	require.NoError(t, err)

	got := table.AttributeTable()

	var want []byte
	want = binary.LittleEndian.AppendUint32(want, 7)
	want = binary.LittleEndian.AppendUint16(want, 3)
	want = append(want, "abc"...)
	want = binary.LittleEndian.AppendUint32(want, 100)
	want = binary.LittleEndian.AppendUint32(want, TraitPreserveOnReset)
	sum := crc32.ChecksumIEEE(want)
	want = append(want, 0, 0, 0) // 17 bytes -> 20
	want = binary.LittleEndian.AppendUint32(want, sum)

	assert.Equal(t, want, got)
	assert.Zero(t, len(got)%4)
}

func TestAttributeTableEmpty(t *testing.T) {
	table, err := New([]Entry{{Handle: 1, Path: filepath.Join(t.TempDir(), "none")}})
	require.NoError(t, err)
	assert.Nil(t, table.AttributeTable())

	empty, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, empty.AttributeTable())
}
