package storage

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
)

// archiveName is the per-release zip holding all source files.
const archiveName = "source.zip"

// ArchiveStore reads source files out of <root>/<crate>/<version>/source.zip.
// The archive is opened per fetch; member names are slash-separated paths
// relative to the release root.
type ArchiveStore struct {
	root string
}

// NewArchiveStore creates an ArchiveStore over the given registry root.
func NewArchiveStore(root string) *ArchiveStore {
	return &ArchiveStore{root: root}
}

// Fetch reads one member from the release archive. A missing archive or
// member maps to ErrNotFound.
func (s *ArchiveStore) Fetch(name, version, path string) ([]byte, error) {
	archivePath := filepath.Join(s.root, name, version, archiveName)

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.Name != path {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(rc)
	}

	return nil, ErrNotFound
}
