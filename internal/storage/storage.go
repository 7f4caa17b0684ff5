// Package storage provides access to the raw source bytes of a release,
// either from an unpacked directory tree or from a per-release archive.
package storage

import "errors"

// ErrNotFound is returned when a release has no stored file at the
// requested path.
var ErrNotFound = errors.New("source file not found")

// Store fetches raw source file bytes for a release. Implementations do no
// caching; every call is a fresh read.
type Store interface {
	Fetch(name, version, path string) ([]byte, error)
}

// ForRelease returns the store matching a release's storage mode: archived
// releases keep their sources in a single zip, the rest as an unpacked tree.
func ForRelease(root string, archive bool) Store {
	if archive {
		return NewArchiveStore(root)
	}
	return NewDirStore(root)
}
