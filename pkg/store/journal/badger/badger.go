// Package badger is a persistent journal on BadgerDB.
//
// Key layout:
//
//	r:<uuid>                                  record (JSON)
//	i:<type %04x>:<handle %08x>:<seq %016x>   uuid of the record, ordered by arrival
//	seq                                       BadgerDB sequence backing <seq>
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/marmos91/pldmfs/pkg/store/journal"
)

// Config configures the badger journal.
type Config struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string

	// InMemory runs BadgerDB without touching disk (tests).
	InMemory bool
}

// Journal persists records in BadgerDB. Records are stored by ID, with an
// index keyed by (file type, handle, sequence) so List is a prefix scan.
type Journal struct {
	db  *badger.DB
	seq *badger.Sequence
	now func() time.Time
}

var _ journal.Journal = (*Journal)(nil)

// New opens or creates the database described by cfg.
func New(ctx context.Context, cfg Config) (*Journal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, errors.New("badger journal: db path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal at %s: %w", cfg.DBPath, err)
	}

	seq, err := db.GetSequence([]byte("seq"), 64)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal sequence: %w", err)
	}

	return &Journal{db: db, seq: seq, now: time.Now}, nil
}

func recordKey(id uuid.UUID) []byte {
	return []byte("r:" + id.String())
}

func indexPrefix(fileType uint16, handle uint32) []byte {
	return []byte(fmt.Sprintf("i:%04x:%08x:", fileType, handle))
}

func indexKey(fileType uint16, handle uint32, seq uint64) []byte {
	return append(indexPrefix(fileType, handle), fmt.Sprintf("%016x", seq)...)
}

func putRecord(txn *badger.Txn, r journal.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}
	return txn.Set(recordKey(r.ID), data)
}

func getRecord(txn *badger.Txn, id uuid.UUID) (journal.Record, error) {
	item, err := txn.Get(recordKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return journal.Record{}, fmt.Errorf("%w: %s", journal.ErrNotFound, id)
	}
	if err != nil {
		return journal.Record{}, err
	}
	var r journal.Record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	})
	return r, err
}

func (j *Journal) Append(ctx context.Context, r journal.Record) (journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return journal.Record{}, err
	}

	r = journal.Prepare(r, j.now())
	n, err := j.seq.Next()
	if err != nil {
		return journal.Record{}, fmt.Errorf("journal sequence: %w", err)
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(recordKey(r.ID)); err == nil {
			return fmt.Errorf("journal record %s already exists", r.ID)
		}
		if err := putRecord(txn, r); err != nil {
			return err
		}
		return txn.Set(indexKey(r.FileType, r.Handle, n), r.ID[:])
	})
	if err != nil {
		return journal.Record{}, err
	}
	return r, nil
}

// Acknowledge updates the newest pending record in the same transaction
// that finds it.
func (j *Journal) Acknowledge(ctx context.Context, fileType uint16, handle uint32, status uint8) (journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return journal.Record{}, err
	}

	var acked journal.Record
	found := false
	err := j.db.Update(func(txn *badger.Txn) error {
		records, err := list(txn, fileType, handle)
		if err != nil {
			return err
		}
		for i := len(records) - 1; i >= 0; i-- {
			r := records[i]
			if r.Acked || r.Event == journal.EventAck {
				continue
			}
			acked = journal.MarkAcked(r, status, j.now())
			found = true
			return putRecord(txn, acked)
		}
		return nil
	})
	if err != nil || found {
		return acked, err
	}

	return j.Append(ctx, journal.MarkAcked(journal.Record{
		FileType: fileType,
		Handle:   handle,
		Event:    journal.EventAck,
	}, status, j.now()))
}

func (j *Journal) Get(ctx context.Context, id uuid.UUID) (journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return journal.Record{}, err
	}

	var r journal.Record
	err := j.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = getRecord(txn, id)
		return err
	})
	return r, err
}

func (j *Journal) List(ctx context.Context, fileType uint16, handle uint32) ([]journal.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []journal.Record
	err := j.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = list(txn, fileType, handle)
		return err
	})
	return out, err
}

func list(txn *badger.Txn, fileType uint16, handle uint32) ([]journal.Record, error) {
	prefix := indexPrefix(fileType, handle)
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true})
	defer it.Close()

	var ids []uuid.UUID
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		id, err := uuid.FromBytes(val)
		if err != nil {
			return nil, fmt.Errorf("corrupt journal index %s: %w", it.Item().Key(), err)
		}
		ids = append(ids, id)
	}

	out := make([]journal.Record, 0, len(ids))
	for _, id := range ids {
		r, err := getRecord(txn, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if err := j.seq.Release(); err != nil {
		_ = j.db.Close()
		return fmt.Errorf("release journal sequence: %w", err)
	}
	return j.db.Close()
}
