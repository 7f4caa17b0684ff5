// Package manifest builds one-level directory listings from the flat
// (mime, path) file manifest stored with every release.
package manifest

import (
	"path"
	"sort"
	"strings"
)

// markerFile is written by the build tooling next to the crate sources and
// must never show up in a listing, at any depth.
const markerFile = ".cargo-ok"

// Entry is a single file in a release manifest. Path is slash-separated and
// relative to the release root.
type Entry struct {
	Mime string `json:"mime"`
	Path string `json:"path"`
}

// EntryKind distinguishes real files from synthetic directory nodes.
type EntryKind int

// Listing node kinds.
const (
	KindDir EntryKind = iota
	KindFile
)

// MarshalJSON renders the kind as "dir" or "file".
func (k EntryKind) MarshalJSON() ([]byte, error) {
	if k == KindDir {
		return []byte(`"dir"`), nil
	}
	return []byte(`"file"`), nil
}

// UnmarshalJSON parses the "dir"/"file" wire form.
func (k *EntryKind) UnmarshalJSON(data []byte) error {
	if string(data) == `"dir"` {
		*k = KindDir
	} else {
		*k = KindFile
	}
	return nil
}

// Node is one immediate child of a listed directory. Directory nodes are
// synthetic: they exist only because some deeper file path passes through
// them, and they carry no mime type.
type Node struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"type"`
	Mime string    `json:"mime,omitempty"`
}

// BuildListing returns the immediate children of the directory named by
// prefix, derived from the flat manifest. prefix is "" for the release root,
// otherwise a directory path ending in "/".
//
// Entries sharing a first path segment below prefix collapse into a single
// directory node. The result is sorted with directories first, then
// case-insensitively by name. The second return value is false when nothing
// lives under prefix, which callers must treat as "not found".
func BuildListing(entries []Entry, prefix string) ([]Node, bool) {
	var nodes []Node
	seen := make(map[Node]bool)

	for _, e := range entries {
		if path.Base(e.Path) == markerFile {
			continue
		}
		if !strings.HasPrefix(e.Path, prefix) {
			continue
		}

		rest := strings.TrimPrefix(e.Path, prefix)
		if rest == "" {
			continue
		}

		segments := strings.SplitN(rest, "/", 2)
		node := Node{Name: segments[0], Kind: KindFile, Mime: e.Mime}
		if len(segments) > 1 {
			// The entry lives deeper down; surface its first segment
			// as a directory and drop the file's own mime type.
			node = Node{Name: segments[0], Kind: KindDir}
		}

		if !seen[node] {
			seen[node] = true
			nodes = append(nodes, node)
		}
	}

	if len(nodes) == 0 {
		return nil, false
	}

	// Sort: directories first, then case-insensitive by name. Equal folded
	// names fall back to a byte-wise compare so the order is deterministic.
	sort.Slice(nodes, func(i, j int) bool {
		if (nodes[i].Kind == KindDir) != (nodes[j].Kind == KindDir) {
			return nodes[i].Kind == KindDir
		}
		a := strings.ToLower(nodes[i].Name)
		b := strings.ToLower(nodes[j].Name)
		if a != b {
			return a < b
		}
		return nodes[i].Name < nodes[j].Name
	})

	return nodes, true
}

// MimeOf returns the manifest mime type recorded for the given file path,
// or "" when the path is not part of the manifest.
func MimeOf(entries []Entry, filePath string) string {
	for _, e := range entries {
		if e.Path == filePath {
			return e.Mime
		}
	}
	return ""
}
