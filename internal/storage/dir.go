package storage

import (
	"os"
	"path/filepath"
)

// sourceDir is the sub-directory of a release holding the unpacked tree.
const sourceDir = "src"

// DirStore reads source files from an unpacked tree at
// <root>/<crate>/<version>/src/<path>.
type DirStore struct {
	root string
}

// NewDirStore creates a DirStore over the given registry root.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// Fetch reads the file stored for the release at the given slash-separated
// path. A missing file maps to ErrNotFound.
func (s *DirStore) Fetch(name, version, path string) ([]byte, error) {
	full := filepath.Join(s.root, name, version, sourceDir, filepath.FromSlash(path))
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}
