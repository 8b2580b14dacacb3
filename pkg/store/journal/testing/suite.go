// Package testing provides a contract suite shared by journal
// implementations.
package testing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pldmfs/pkg/store/journal"
)

// JournalTestSuite tests the journal.Journal contract. NewJournal must
// return an empty journal; the suite closes it.
type JournalTestSuite struct {
	NewJournal func(t *testing.T) journal.Journal
}

// Run runs every contract test as a subtest.
func (suite *JournalTestSuite) Run(t *testing.T) {
	t.Run("Append_AssignsIDAndTime", suite.testAppend)
	t.Run("Get_NotFound", suite.testGetNotFound)
	t.Run("List_Order", suite.testListOrder)
	t.Run("List_Isolation", suite.testListIsolation)
	t.Run("Acknowledge_Latest", suite.testAckLatest)
	t.Run("Acknowledge_NothingPending", suite.testAckNothingPending)
}

func (suite *JournalTestSuite) open(t *testing.T) journal.Journal {
	j := suite.NewJournal(t)
	t.Cleanup(func() { require.NoError(t, j.Close()) })
	return j
}

var ctx = context.Background()

func (suite *JournalTestSuite) testAppend(t *testing.T) {
	j := suite.open(t)

	r, err := j.Append(ctx, journal.Record{FileType: 3, Handle: 9, Length: 4096, Event: journal.EventNewFileAvailable})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := j.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, uint64(4096), got.Length)
	assert.Equal(t, journal.EventNewFileAvailable, got.Event)
}

func (suite *JournalTestSuite) testGetNotFound(t *testing.T) {
	j := suite.open(t)

	_, err := j.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func (suite *JournalTestSuite) testListOrder(t *testing.T) {
	j := suite.open(t)

	for i := 0; i < 5; i++ {
		_, err := j.Append(ctx, journal.Record{FileType: 0, Handle: 1, Length: uint64(i), Event: journal.EventWrite})
		require.NoError(t, err)
	}

	records, err := j.List(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, r := range records {
		assert.Equal(t, uint64(i), r.Length)
	}
}

func (suite *JournalTestSuite) testListIsolation(t *testing.T) {
	j := suite.open(t)

	_, err := j.Append(ctx, journal.Record{FileType: 0, Handle: 1, Event: journal.EventWrite})
	require.NoError(t, err)
	_, err = j.Append(ctx, journal.Record{FileType: 0, Handle: 0x10, Event: journal.EventWrite})
	require.NoError(t, err)
	_, err = j.Append(ctx, journal.Record{FileType: 1, Handle: 1, Event: journal.EventWrite})
	require.NoError(t, err)

	records, err := j.List(ctx, 0, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = j.List(ctx, 2, 1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func (suite *JournalTestSuite) testAckLatest(t *testing.T) {
	j := suite.open(t)

	first, err := j.Append(ctx, journal.Record{FileType: 3, Handle: 2, Length: 1, Event: journal.EventNewFileAvailable})
	require.NoError(t, err)
	second, err := j.Append(ctx, journal.Record{FileType: 3, Handle: 2, Length: 2, Event: journal.EventNewFileAvailable})
	require.NoError(t, err)

	acked, err := j.Acknowledge(ctx, 3, 2, 0x01)
	require.NoError(t, err)
	assert.Equal(t, second.ID, acked.ID)
	assert.True(t, acked.Acked)
	assert.Equal(t, uint8(1), acked.AckStatus)
	require.NotNil(t, acked.AckedAt)

	acked, err = j.Acknowledge(ctx, 3, 2, 0x00)
	require.NoError(t, err)
	assert.Equal(t, first.ID, acked.ID)

	got, err := j.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, got.Acked)
}

func (suite *JournalTestSuite) testAckNothingPending(t *testing.T) {
	j := suite.open(t)

	r, err := j.Acknowledge(ctx, 0, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, journal.EventAck, r.Event)
	assert.True(t, r.Acked)

	records, err := j.List(ctx, 0, 5)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// a standalone ack is never itself acknowledged
	r2, err := j.Acknowledge(ctx, 0, 5, 0)
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, r2.ID)
}
