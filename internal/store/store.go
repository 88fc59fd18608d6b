// Package store persists observer snapshots as JSON files.
//
// Each document is one file: <name>.json. Writes use atomic file
// replacement (write to .tmp, then rename) so a reader never sees a
// partial document. Nothing is ever loaded back: market state lives on
// the bus, the files exist for dashboards and post-run analysis.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store writes JSON documents into a designated directory. All
// operations are mutex-protected to prevent concurrent file corruption.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// Save atomically writes v as <name>.json. It writes to a .tmp file
// first, then renames over the target so the file is never left in a
// partial state.
func (s *Store) Save(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := s.Path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return os.Rename(tmp, path)
}

// Path returns where a document is (or will be) written.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
