// Package fs stores blobs as plain files under a root directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/pldmfs/pkg/store/content"
)

// Store keeps each ID at <root>/<id>.
type Store struct {
	root     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

var _ content.Store = (*Store)(nil)

// Config configures a filesystem store.
type Config struct {
	Root     string
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

// New creates the root directory if needed.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("fs content store: root is required")
	}
	if cfg.DirPerm == 0 {
		cfg.DirPerm = 0o755
	}
	if cfg.FilePerm == 0 {
		cfg.FilePerm = 0o644
	}
	if err := os.MkdirAll(cfg.Root, cfg.DirPerm); err != nil {
		return nil, fmt.Errorf("create content root %s: %w", cfg.Root, err)
	}
	return &Store{root: cfg.Root, dirPerm: cfg.DirPerm, filePerm: cfg.FilePerm}, nil
}

// Path returns where id is stored.
func (s *Store) Path(id content.ID) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(string(id))), nil
}

func (s *Store) ReadAt(ctx context.Context, id content.ID, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, content.ErrInvalidOffset
	}
	path, err := s.Path(id)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, mapErr(id, err)
	}
	defer f.Close()

	n, err := f.ReadAt(p, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("read content %s: %w", id, err)
	}
	return n, err
}

// WriteAt creates parent directories as needed.
func (s *Store) WriteAt(ctx context.Context, id content.ID, p []byte, offset int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if offset < 0 {
		return content.ErrInvalidOffset
	}
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), s.dirPerm); err != nil {
		return fmt.Errorf("create content dir for %s: %w", id, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, s.filePerm)
	if err != nil {
		return fmt.Errorf("open content %s: %w", id, err)
	}
	if _, err := f.WriteAt(p, offset); err != nil {
		f.Close()
		return fmt.Errorf("write content %s: %w", id, err)
	}
	return f.Close()
}

func (s *Store) Size(ctx context.Context, id content.ID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := s.Path(id)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, mapErr(id, err)
	}
	return info.Size(), nil
}

func (s *Store) Exists(ctx context.Context, id content.ID) (bool, error) {
	_, err := s.Size(ctx, id)
	if errors.Is(err, content.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) Delete(ctx context.Context, id content.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return mapErr(id, err)
	}
	return nil
}

func mapErr(id content.ID, err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("content %s: %w", id, content.ErrNotFound)
	}
	return fmt.Errorf("content %s: %w", id, err)
}
