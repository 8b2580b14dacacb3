package filetable

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

// descriptorEntry is one item of the descriptor's "files" list.
//
// Example (YAML):
//
//	files:
//	  - path: /var/lib/pldm/files/bootlog
//	    file_traits: 1
//	  - path: /var/lib/pldm/files/inventory
//	    file_traits: 3
//	    handle: 7
//
// Entries without a handle get their position in the list.
type descriptorEntry struct {
	Path   string  `mapstructure:"path"`
	Traits uint32  `mapstructure:"file_traits"`
	Handle *uint32 `mapstructure:"handle"`
}

// Load reads a JSON, YAML or TOML descriptor and builds the table.
func Load(path string) (*Table, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read file table descriptor %s: %w", path, err)
	}

	var raw []descriptorEntry
	if err := v.UnmarshalKey("files", &raw); err != nil {
		return nil, fmt.Errorf("decode file table descriptor %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		if r.Path == "" {
			return nil, fmt.Errorf("file table descriptor %s: entry %d has no path", path, i)
		}
		handle := uint32(i)
		if r.Handle != nil {
			handle = *r.Handle
		}
		entries = append(entries, Entry{Handle: handle, Path: r.Path, Traits: r.Traits})
	}

	t, err := New(entries)
	if err != nil {
		return nil, fmt.Errorf("file table descriptor %s: %w", path, err)
	}
	return t, nil
}

// Provider builds a Table from a descriptor on first use and caches the
// result, error included.
type Provider struct {
	path  string
	once  sync.Once
	table *Table
	err   error
}

// NewProvider returns a Provider for the descriptor at path. Nothing is read
// until the first call to Table.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// Table returns the cached table, loading it on the first call. Concurrent
// first calls load exactly once.
func (p *Provider) Table() (*Table, error) {
	p.once.Do(func() {
		p.table, p.err = Load(p.path)
	})
	return p.table, p.err
}
