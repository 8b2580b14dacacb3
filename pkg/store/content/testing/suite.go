// Package testing provides a contract suite shared by every content.Store
// implementation.
package testing

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/pkg/store/content"
)

// StoreTestSuite tests the content.Store contract.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each test.
	NewStore func(t *testing.T) content.Store
}

// Run runs every contract test as a subtest.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ReadAt_NotFound", suite.testReadNotFound)
	t.Run("WriteAt_ThenReadAt", suite.testWriteRead)
	t.Run("WriteAt_Gap", suite.testWriteGap)
	t.Run("WriteAt_Overwrite", suite.testOverwrite)
	t.Run("ReadAt_ShortAtEnd", suite.testShortRead)
	t.Run("ReadAt_PastEnd", suite.testReadPastEnd)
	t.Run("Size", suite.testSize)
	t.Run("Exists", suite.testExists)
	t.Run("Delete", suite.testDelete)
	t.Run("Replace", suite.testReplace)
	t.Run("InvalidOffset", suite.testInvalidOffset)
}

var ctx = context.Background()

func (suite *StoreTestSuite) testReadNotFound(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.ReadAt(ctx, "pel/00000001", make([]byte, 4), 0)
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *StoreTestSuite) testWriteRead(t *testing.T) {
	store := suite.NewStore(t)
	id := content.NewID("pel", "00000007")

	require.NoError(t, store.WriteAt(ctx, id, []byte("hello world"), 0))

	buf := make([]byte, 5)
	n, err := store.ReadAt(ctx, id, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))
}

func (suite *StoreTestSuite) testWriteGap(t *testing.T) {
	store := suite.NewStore(t)
	id := content.ID("gap")

	require.NoError(t, store.WriteAt(ctx, id, []byte{0xAA}, 4))

	data, err := content.ReadAll(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 0xAA}, data)
}

func (suite *StoreTestSuite) testOverwrite(t *testing.T) {
	store := suite.NewStore(t)
	id := content.ID("cert/csr")

	require.NoError(t, store.WriteAt(ctx, id, []byte("abcdef"), 0))
	require.NoError(t, store.WriteAt(ctx, id, []byte("XY"), 2))

	data, err := content.ReadAll(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, "abXYef", string(data))
}

func (suite *StoreTestSuite) testShortRead(t *testing.T) {
	store := suite.NewStore(t)
	id := content.ID("short")
	require.NoError(t, store.WriteAt(ctx, id, []byte("12345"), 0))

	buf := make([]byte, 10)
	n, err := store.ReadAt(ctx, id, buf, 3)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "45", string(buf[:n]))
}

func (suite *StoreTestSuite) testReadPastEnd(t *testing.T) {
	store := suite.NewStore(t)
	id := content.ID("past")
	require.NoError(t, store.WriteAt(ctx, id, []byte("12345"), 0))

	n, err := store.ReadAt(ctx, id, make([]byte, 4), 10)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func (suite *StoreTestSuite) testSize(t *testing.T) {
	store := suite.NewStore(t)
	id := content.ID("sized")

	_, err := store.Size(ctx, id)
	assert.ErrorIs(t, err, content.ErrNotFound)

	require.NoError(t, store.WriteAt(ctx, id, make([]byte, 100), 0))
	size, err := store.Size(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), size)
}

func (suite *StoreTestSuite) testExists(t *testing.T) {
	store := suite.NewStore(t)
	id := content.ID("exists")

	ok, err := store.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.WriteAt(ctx, id, []byte{1}, 0))
	ok, err = store.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	store := suite.NewStore(t)
	id := content.ID("delete/me")

	assert.ErrorIs(t, store.Delete(ctx, id), content.ErrNotFound)

	require.NoError(t, store.WriteAt(ctx, id, []byte{1}, 0))
	require.NoError(t, store.Delete(ctx, id))

	ok, err := store.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func (suite *StoreTestSuite) testReplace(t *testing.T) {
	store := suite.NewStore(t)
	id := content.ID("progress/latest")

	require.NoError(t, content.Replace(ctx, store, id, []byte("long value")))
	require.NoError(t, content.Replace(ctx, store, id, []byte("short")))

	data, err := content.ReadAll(ctx, store, id)
	require.NoError(t, err)
	assert.Equal(t, "short", string(data))
}

func (suite *StoreTestSuite) testInvalidOffset(t *testing.T) {
	store := suite.NewStore(t)

	assert.ErrorIs(t, store.WriteAt(ctx, "neg", []byte{1}, -1), content.ErrInvalidOffset)
	_, err := store.ReadAt(ctx, "neg", make([]byte, 1), -1)
	assert.ErrorIs(t, err, content.ErrInvalidOffset)
}
