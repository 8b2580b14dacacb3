package config

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/pkg/store/content"
	contentFs "github.com/marmos91/pldmfs/pkg/store/content/fs"
	contentMemory "github.com/marmos91/pldmfs/pkg/store/content/memory"
	journalBadger "github.com/marmos91/pldmfs/pkg/store/journal/badger"
	journalMemory "github.com/marmos91/pldmfs/pkg/store/journal/memory"
)

func TestCreateContentStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := CreateContentStore(ctx, &ContentConfig{Type: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &contentMemory.Store{}, store)
	})

	t.Run("filesystem", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "blobs")
		store, err := CreateContentStore(ctx, &ContentConfig{
			Type:       "filesystem",
			Filesystem: map[string]any{"path": root, "file_perm": 0o600},
		})
		require.NoError(t, err)
		assert.IsType(t, &contentFs.Store{}, store)

		id := content.NewID("pel", "00000001")
		require.NoError(t, store.WriteAt(ctx, id, []byte("event"), 0))
		size, err := store.Size(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(5), size)
	})

	t.Run("filesystem without path", func(t *testing.T) {
		_, err := CreateContentStore(ctx, &ContentConfig{Type: "filesystem", Filesystem: map[string]any{}})
		assert.ErrorContains(t, err, "path is required")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := CreateContentStore(ctx, &ContentConfig{Type: "tape"})
		assert.ErrorContains(t, err, "unknown content store type")
	})

	t.Run("s3 without bucket", func(t *testing.T) {
		_, err := CreateContentStore(ctx, &ContentConfig{Type: "s3", S3: map[string]any{"region": "us-east-1"}})
		assert.ErrorContains(t, err, "bucket is required")
	})
}

func TestDecodeS3Options(t *testing.T) {
	opts, err := decodeS3Options(map[string]any{
		"bucket":     "pldm",
		"region":     "eu-west-1",
		"key_prefix": "bmc0",
		"endpoint":   "http://localhost:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "pldm", opts.Bucket)
	assert.Equal(t, "bmc0", opts.KeyPrefix)
	assert.Equal(t, "http://localhost:9000", opts.Endpoint)
	assert.Equal(t, 10, opts.MaxRetries)

	_, err = decodeS3Options(map[string]any{"bucket": "pldm"})
	assert.ErrorContains(t, err, "region is required")

	_, err = decodeS3Options(map[string]any{"bucket": 42, "region": []int{1}})
	assert.Error(t, err)
}

func TestCreateS3ContentStoreWithStaticCredentials(t *testing.T) {
	store, err := CreateContentStore(context.Background(), &ContentConfig{
		Type: "s3",
		S3: map[string]any{
			"bucket":            "pldm",
			"region":            "us-east-1",
			"endpoint":          "http://127.0.0.1:9",
			"access_key_id":     "test",
			"secret_access_key": "test",
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestCreateJournal(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		j, err := CreateJournal(ctx, &JournalConfig{Type: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &journalMemory.Journal{}, j)
	})

	t.Run("badger in memory", func(t *testing.T) {
		j, err := CreateJournal(ctx, &JournalConfig{Type: "badger", Badger: map[string]any{"in_memory": true}})
		require.NoError(t, err)
		assert.IsType(t, &journalBadger.Journal{}, j)
		require.NoError(t, j.(io.Closer).Close())
	})

	t.Run("badger on disk", func(t *testing.T) {
		j, err := CreateJournal(ctx, &JournalConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": filepath.Join(t.TempDir(), "journal")},
		})
		require.NoError(t, err)
		require.NoError(t, j.(io.Closer).Close())
	})

	t.Run("badger without path", func(t *testing.T) {
		_, err := CreateJournal(ctx, &JournalConfig{Type: "badger", Badger: map[string]any{}})
		assert.ErrorContains(t, err, "db_path is required")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := CreateJournal(cctx, &JournalConfig{Type: "memory"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := CreateJournal(ctx, &JournalConfig{Type: "sqlite"})
		assert.ErrorContains(t, err, "unknown journal type")
	})
}
