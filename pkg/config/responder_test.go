package config

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/internal/protocol/pldm"
	"github.com/marmos91/pldmfs/internal/protocol/pldm/fileio"
	"github.com/marmos91/pldmfs/pkg/dma/dmatest"
	"github.com/marmos91/pldmfs/pkg/filetype"
)

func responderConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()

	bootlog := filepath.Join(dir, "bootlog")
	require.NoError(t, os.WriteFile(bootlog, []byte("boot ok\n"), 0o644))

	descriptor := filepath.Join(dir, "fileTable.json")
	require.NoError(t, os.WriteFile(descriptor, []byte(fmt.Sprintf(
		`{"files": [{"path": %q, "file_traits": 1}]}`, bootlog)), 0o644))

	cfg := GetDefaultConfig()
	cfg.FileTable.Path = descriptor
	cfg.FileTypes.LIDDir = filepath.Join(dir, "lid")
	cfg.Content = ContentConfig{Type: "memory"}
	cfg.Journal = JournalConfig{Type: "memory"}
	cfg.DMA.PageSize = 4096
	cfg.Adapter.SocketPath = filepath.Join(dir, "pldmfs.sock")
	require.NoError(t, Validate(cfg))
	return cfg
}

func TestBuildResponder(t *testing.T) {
	cfg := responderConfig(t)
	host := dmatest.NewHost(0x1000_0000, 64*1024)

	r, err := BuildResponder(context.Background(), cfg, nil, WithDeviceOpener(host.Opener()))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 1, r.Table.Len())
	assert.Contains(t, r.Registry.Types(), filetype.PEL)
	assert.Contains(t, r.Registry.Types(), filetype.LIDPerm)

	payload := binary.LittleEndian.AppendUint32(nil, 0)
	payload = append(payload, 0x01, fileio.FileAttributeTable)
	msg := pldm.NewRequestMessage(2, pldm.TypeOEM, fileio.CmdGetFileTable, payload)

	resp, err := r.Handler.Handle(context.Background(), msg)
	require.NoError(t, err)
	require.Greater(t, len(resp), pldm.HeaderSize)
	assert.Equal(t, byte(pldm.Success), resp[pldm.HeaderSize])

	a, err := CreateAdapter(cfg, r.Handler, nil)
	require.NoError(t, err)
	assert.Equal(t, "unix", a.Protocol())
}

func TestBuildResponder_SelectedFamilies(t *testing.T) {
	cfg := responderConfig(t)
	cfg.FileTypes.Families = []string{"pel"}

	r, err := BuildResponder(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Contains(t, r.Registry.Types(), filetype.PEL)
	assert.NotContains(t, r.Registry.Types(), filetype.LIDPerm)
}

func TestBuildResponder_StoreError(t *testing.T) {
	cfg := responderConfig(t)
	cfg.Journal = JournalConfig{Type: "badger", Badger: map[string]any{}}

	_, err := BuildResponder(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "db_path is required")
}

func TestLoadFileTable(t *testing.T) {
	table, err := LoadFileTable(&FileTableConfig{Path: filepath.Join(t.TempDir(), "missing.json")})
	require.NoError(t, err)
	assert.Zero(t, table.Len())

	table, err = LoadFileTable(&FileTableConfig{})
	require.NoError(t, err)
	assert.Zero(t, table.Len())

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"files": [{"file_traits": 1}]}`), 0o644))
	_, err = LoadFileTable(&FileTableConfig{Path: bad})
	assert.Error(t, err)
}

func TestInitializeMetricsDisabled(t *testing.T) {
	m := InitializeMetrics(GetDefaultConfig())
	assert.Nil(t, m.Server)
	assert.NotNil(t, m.Command)
	assert.NotNil(t, m.DMA)
	assert.NotNil(t, m.Connection)
}
