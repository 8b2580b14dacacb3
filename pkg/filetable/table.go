// Package filetable maps host-visible file handles to local storage paths.
//
// A Table is built once from a descriptor file and never mutated afterwards,
// so it can be shared by concurrent command handlers without locking.
package filetable

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrHandleNotFound is returned by Resolve for handles absent from the
	// table.
	ErrHandleNotFound = errors.New("file handle not found")

	// ErrPathMissing is returned by Stat when an entry resolves but its
	// backing path does not exist.
	ErrPathMissing = errors.New("file path missing")

	// ErrDuplicateHandle rejects descriptors that assign a handle twice.
	ErrDuplicateHandle = errors.New("duplicate file handle")
)

// Trait flags carried in the file attribute table.
const (
	TraitReadOnly        uint32 = 1 << 0
	TraitPreserveOnReset uint32 = 1 << 1
)

// Entry is one row of the table.
type Entry struct {
	Handle uint32
	Path   string
	Traits uint32
}

// Table is an ordered, immutable handle to Entry mapping.
type Table struct {
	entries  []Entry
	byHandle map[uint32]int
}

// New builds a table from entries, keeping their order. Handles must be
// unique.
func New(entries []Entry) (*Table, error) {
	t := &Table{
		entries:  make([]Entry, 0, len(entries)),
		byHandle: make(map[uint32]int, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.byHandle[e.Handle]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateHandle, e.Handle)
		}
		t.byHandle[e.Handle] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t, nil
}

// Resolve returns the entry for handle.
func (t *Table) Resolve(handle uint32) (Entry, error) {
	if t == nil {
		return Entry{}, fmt.Errorf("%w: %d", ErrHandleNotFound, handle)
	}
	i, ok := t.byHandle[handle]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %d", ErrHandleNotFound, handle)
	}
	return t.entries[i], nil
}

// Stat returns the size of e's backing file.
func (t *Table) Stat(e Entry) (int64, error) {
	return statPath(e.Path)
}

func statPath(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrPathMissing, path)
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// Len returns the number of entries. A nil Table is empty.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns a copy of the entries in table order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	return append([]Entry(nil), t.entries...)
}
