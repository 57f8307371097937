package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/pyresolve/pkg/module"
)

// snapshotVersion is bumped whenever the indexing rules change.
const snapshotVersion = 1

// Snapshot is a persisted registry for a tree that rarely changes, such as
// the standard library of an installed interpreter.
type Snapshot struct {
	Version  int              `msgpack:"v"`
	Root     string           `msgpack:"root"`
	Modules  []*module.Module `msgpack:"modules"`
	TopLevel []string         `msgpack:"top"`
}

// NewSnapshot captures the current contents of reg for root.
func NewSnapshot(root string, reg *module.Registry, topLevel []string) *Snapshot {
	return &Snapshot{
		Version:  snapshotVersion,
		Root:     root,
		Modules:  reg.Modules(),
		TopLevel: topLevel,
	}
}

// Save persists the snapshot to a file using msgpack.
func (s *Snapshot) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := msgpack.NewEncoder(file).Encode(s); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot restores a snapshot from a file using msgpack.
func LoadSnapshot(path string) (*Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var s Snapshot
	if err := msgpack.NewDecoder(file).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &s, nil
}

// Matches reports whether the snapshot was taken for root with the current
// indexing rules.
func (s *Snapshot) Matches(root string) bool {
	return s.Version == snapshotVersion && s.Root == root
}

// Restore puts every module of the snapshot into reg and paths.
func (s *Snapshot) Restore(reg *module.Registry, paths *module.PathIndex) {
	for _, m := range s.Modules {
		reg.Put(m)
		paths.Put(m.Path, m)
	}
}
