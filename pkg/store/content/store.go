// Package content defines the blob store used by OEM file-type handlers to
// keep host-pushed files (error logs, certificates, progress codes) and to
// serve files back to the host.
//
// Implementations:
//   - fs: one file per ID under a root directory
//   - memory: process memory, for tests and ephemeral deployments
//   - s3: one object per ID in an S3 (or S3-compatible) bucket
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ID names a blob. IDs are slash-separated relative paths such as
// "pel/00000007".
type ID string

// NewID joins parts with "/".
func NewID(parts ...string) ID {
	return ID(strings.Join(parts, "/"))
}

// Validate rejects empty, absolute and parent-escaping IDs.
func (id ID) Validate() error {
	s := string(id)
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if strings.HasPrefix(s, "/") {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidID, s)
	}
	for _, part := range strings.Split(s, "/") {
		if part == ".." || part == "." || part == "" {
			return fmt.Errorf("%w: %q", ErrInvalidID, s)
		}
	}
	return nil
}

var (
	// ErrNotFound indicates the blob does not exist.
	ErrNotFound = errors.New("content not found")

	// ErrInvalidOffset indicates a negative offset.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrInvalidID indicates an ID that cannot be mapped to storage.
	ErrInvalidID = errors.New("invalid content id")
)

// Store is a random-access blob store.
//
// ReadAt follows io.ReaderAt: it returns io.EOF when fewer than len(p) bytes
// are available at offset. WriteAt creates the blob if needed and zero-fills
// any gap between the current end and offset.
type Store interface {
	ReadAt(ctx context.Context, id ID, p []byte, offset int64) (int, error)
	WriteAt(ctx context.Context, id ID, p []byte, offset int64) error
	Size(ctx context.Context, id ID) (int64, error)
	Exists(ctx context.Context, id ID) (bool, error)
	Delete(ctx context.Context, id ID) error
}

// ReadAll returns the whole blob.
func ReadAll(ctx context.Context, s Store, id ID) ([]byte, error) {
	size, err := s.Size(ctx, id)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}
	n, err := s.ReadAt(ctx, id, buf, 0)
	if err != nil && n != len(buf) {
		return nil, err
	}
	return buf, nil
}

// Replace overwrites the blob with data, truncating any previous content.
func Replace(ctx context.Context, s Store, id ID, data []byte) error {
	if err := s.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.WriteAt(ctx, id, data, 0)
}
