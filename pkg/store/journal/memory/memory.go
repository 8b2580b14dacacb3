// Package memory is an in-process journal.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/pldmfs/pkg/store/journal"
)

type key struct {
	fileType uint16
	handle   uint32
}

// Journal keeps records in memory; contents are lost on restart.
type Journal struct {
	mu      sync.Mutex
	records map[uuid.UUID]journal.Record
	byFile  map[key][]uuid.UUID
	now     func() time.Time
}

var _ journal.Journal = (*Journal)(nil)

// New returns an empty journal.
func New() *Journal {
	return &Journal{
		records: make(map[uuid.UUID]journal.Record),
		byFile:  make(map[key][]uuid.UUID),
		now:     time.Now,
	}
}

func (j *Journal) Append(ctx context.Context, r journal.Record) (journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return journal.Record{}, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	r = journal.Prepare(r, j.now())
	if _, dup := j.records[r.ID]; dup {
		return journal.Record{}, fmt.Errorf("journal record %s already exists", r.ID)
	}
	j.records[r.ID] = r
	k := key{r.FileType, r.Handle}
	j.byFile[k] = append(j.byFile[k], r.ID)
	return r, nil
}

func (j *Journal) Acknowledge(ctx context.Context, fileType uint16, handle uint32, status uint8) (journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return journal.Record{}, err
	}

	j.mu.Lock()
	ids := j.byFile[key{fileType, handle}]
	for i := len(ids) - 1; i >= 0; i-- {
		r := j.records[ids[i]]
		if r.Acked || r.Event == journal.EventAck {
			continue
		}
		r = journal.MarkAcked(r, status, j.now())
		j.records[r.ID] = r
		j.mu.Unlock()
		return r, nil
	}
	now := j.now()
	j.mu.Unlock()

	return j.Append(ctx, journal.MarkAcked(journal.Record{
		FileType: fileType,
		Handle:   handle,
		Event:    journal.EventAck,
	}, status, now))
}

func (j *Journal) Get(ctx context.Context, id uuid.UUID) (journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return journal.Record{}, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	r, ok := j.records[id]
	if !ok {
		return journal.Record{}, fmt.Errorf("%w: %s", journal.ErrNotFound, id)
	}
	return r, nil
}

// List returns records in append order.
func (j *Journal) List(ctx context.Context, fileType uint16, handle uint32) ([]journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	ids := j.byFile[key{fileType, handle}]
	out := make([]journal.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, j.records[id])
	}
	return out, nil
}

func (j *Journal) Close() error {
	return nil
}
