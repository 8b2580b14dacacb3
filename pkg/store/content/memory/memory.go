// Package memory keeps blobs in process memory.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/pldmfs/pkg/store/content"
)

// Store is a map of byte slices guarded by a RWMutex.
type Store struct {
	mu    sync.RWMutex
	blobs map[content.ID][]byte
}

var _ content.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{blobs: make(map[content.ID][]byte)}
}

func (s *Store) ReadAt(ctx context.Context, id content.ID, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, content.ErrInvalidOffset
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[id]
	if !ok {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrNotFound)
	}
	if offset >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[offset:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *Store) WriteAt(ctx context.Context, id content.ID, p []byte, offset int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if offset < 0 {
		return content.ErrInvalidOffset
	}
	if err := id.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.blobs[id]
	if end := offset + int64(len(p)); end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[offset:], p)
	s.blobs[id] = data
	return nil
}

func (s *Store) Size(ctx context.Context, id content.ID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[id]
	if !ok {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrNotFound)
	}
	return int64(len(data)), nil
}

func (s *Store) Exists(ctx context.Context, id content.ID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[id]
	return ok, nil
}

func (s *Store) Delete(ctx context.Context, id content.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[id]; !ok {
		return fmt.Errorf("content %s: %w", id, content.ErrNotFound)
	}
	delete(s.blobs, id)
	return nil
}
