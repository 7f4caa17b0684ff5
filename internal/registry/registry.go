// Package registry maintains the in-memory index of published releases and
// resolves requested versions against it.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"

	"github.com/cratehub/cratehub/internal/manifest"
)

// ErrNotFound is returned when no release satisfies a lookup.
var ErrNotFound = errors.New("crate release not found")

// descriptorName is the per-release file holding metadata and the flat
// file manifest.
const descriptorName = "release.json"

// Metadata is the read-only snapshot of release attributes attached to
// every source page.
type Metadata struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Description   string   `json:"description,omitempty"`
	TargetName    string   `json:"target_name,omitempty"`
	RustdocStatus bool     `json:"rustdoc_status"`
	DefaultTarget string   `json:"default_target,omitempty"`
	DocTargets    []string `json:"doc_targets,omitempty"`
	Yanked        bool     `json:"yanked"`
}

// Release is one published version of a crate as indexed from its
// on-disk descriptor.
type Release struct {
	Metadata
	ArchiveStorage bool
	Files          []manifest.Entry
}

// descriptor mirrors the release.json layout. Files keeps the stored shape
// of two-element [mime, path] arrays.
type descriptor struct {
	Description    string      `json:"description"`
	TargetName     string      `json:"target_name"`
	RustdocStatus  bool        `json:"rustdoc_status"`
	DefaultTarget  string      `json:"default_target"`
	DocTargets     []string    `json:"doc_targets"`
	Yanked         bool        `json:"yanked"`
	ArchiveStorage bool        `json:"archive_storage"`
	Files          [][2]string `json:"files"`
}

// Registry indexes the releases found under a storage root laid out as
// <root>/<crate>/<version>/release.json. The index is rebuilt by Reload and
// safe for concurrent readers.
type Registry struct {
	root string
	log  *logrus.Logger

	mu         sync.RWMutex
	crates     map[string][]*Release // canonical name -> releases, newest first
	normalized map[string]string     // normalized name -> canonical name
}

// New creates a registry over the given root directory. Call Reload to
// populate the index.
func New(root string, log *logrus.Logger) *Registry {
	if log == nil {
		log = logrus.New()
	}
	return &Registry{
		root:       root,
		log:        log,
		crates:     make(map[string][]*Release),
		normalized: make(map[string]string),
	}
}

// Root returns the storage root directory the index was built from.
func (r *Registry) Root() string {
	return r.root
}

// Reload rescans the storage root and swaps in a fresh index. Unreadable or
// malformed release descriptors are skipped with a warning rather than
// failing the whole scan.
func (r *Registry) Reload() error {
	crateDirs, err := os.ReadDir(r.root)
	if err != nil {
		return fmt.Errorf("scan registry root: %w", err)
	}

	crates := make(map[string][]*Release)
	normalized := make(map[string]string)

	for _, crateDir := range crateDirs {
		if !crateDir.IsDir() {
			continue
		}
		name := crateDir.Name()

		versionDirs, err := os.ReadDir(filepath.Join(r.root, name))
		if err != nil {
			r.log.WithFields(logrus.Fields{"crate": name}).Warnf("skipping crate: %v", err)
			continue
		}

		for _, versionDir := range versionDirs {
			if !versionDir.IsDir() {
				continue
			}
			version := versionDir.Name()

			rel, err := r.loadRelease(name, version)
			if err != nil {
				r.log.WithFields(logrus.Fields{
					"crate":   name,
					"version": version,
				}).Warnf("skipping release: %v", err)
				continue
			}
			crates[name] = append(crates[name], rel)
		}

		if len(crates[name]) > 0 {
			sortReleases(crates[name])
			normalized[normalizeName(name)] = name
		}
	}

	r.mu.Lock()
	r.crates = crates
	r.normalized = normalized
	r.mu.Unlock()

	return nil
}

func (r *Registry) loadRelease(name, version string) (*Release, error) {
	data, err := os.ReadFile(filepath.Join(r.root, name, version, descriptorName))
	if err != nil {
		return nil, err
	}

	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", descriptorName, err)
	}

	files := make([]manifest.Entry, 0, len(d.Files))
	for _, f := range d.Files {
		files = append(files, manifest.Entry{Mime: f[0], Path: f[1]})
	}

	return &Release{
		Metadata: Metadata{
			Name:          name,
			Version:       version,
			Description:   d.Description,
			TargetName:    d.TargetName,
			RustdocStatus: d.RustdocStatus,
			DefaultTarget: d.DefaultTarget,
			DocTargets:    d.DocTargets,
			Yanked:        d.Yanked,
		},
		ArchiveStorage: d.ArchiveStorage,
		Files:          files,
	}, nil
}

// sortReleases orders newest first. Versions that do not parse as semver
// sort after all valid ones, byte-wise descending among themselves.
func sortReleases(releases []*Release) {
	sort.SliceStable(releases, func(i, j int) bool {
		vi, vj := vtag(releases[i].Version), vtag(releases[j].Version)
		okI, okJ := semver.IsValid(vi), semver.IsValid(vj)
		if okI != okJ {
			return okI
		}
		if !okI {
			return releases[i].Version > releases[j].Version
		}
		return semver.Compare(vi, vj) > 0
	})
}

// Release returns the indexed release for an exact (name, version) pair.
func (r *Registry) Release(name, version string) (*Release, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rel := range r.crates[name] {
		if rel.Version == version {
			return rel, nil
		}
	}
	return nil, ErrNotFound
}

// Crates returns all indexed crate names in sorted order.
func (r *Registry) Crates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.crates))
	for name := range r.crates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Versions returns the metadata of every release of a crate, newest first.
func (r *Registry) Versions(name string) ([]Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	releases := r.crates[name]
	if len(releases) == 0 {
		return nil, ErrNotFound
	}
	out := make([]Metadata, len(releases))
	for i, rel := range releases {
		out[i] = rel.Metadata
	}
	return out, nil
}

// Counts reports the number of indexed crates and releases.
func (r *Registry) Counts() (crates, releases int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rels := range r.crates {
		releases += len(rels)
	}
	return len(r.crates), releases
}

// normalizeName folds the '-'/'_' distinction (and case) so near-miss crate
// names can be corrected to their canonical spelling.
func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}

func vtag(version string) string {
	return "v" + version
}
