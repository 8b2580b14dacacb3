package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/pkg/store/journal"
	journaltesting "github.com/marmos91/pldmfs/pkg/store/journal/testing"
)

func TestBadgerJournal(t *testing.T) {
	suite := &journaltesting.JournalTestSuite{
		NewJournal: func(t *testing.T) journal.Journal {
			j, err := New(context.Background(), Config{DBPath: t.TempDir()})
			require.NoError(t, err)
			return j
		},
	}
	suite.Run(t)
}

func TestBadgerJournalPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	j, err := New(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	r, err := j.Append(ctx, journal.Record{FileType: 0, Handle: 7, Length: 64, Event: journal.EventWrite})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = New(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	defer j.Close()

	got, err := j.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), got.Length)

	_, err = j.Append(ctx, journal.Record{FileType: 0, Handle: 7, Event: journal.EventWrite})
	require.NoError(t, err)
	records, err := j.List(ctx, 0, 7)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, r.ID, records[0].ID, "sequence keeps arrival order across reopen")
}

func TestBadgerJournalRequiresPath(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
