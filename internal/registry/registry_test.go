package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// fakeRelease describes one release to materialize in a test registry.
type fakeRelease struct {
	name    string
	version string
	yanked  bool
	files   [][2]string
}

// setupTestRegistry writes release descriptors under a temp root and
// returns a loaded registry.
func setupTestRegistry(t *testing.T, releases ...fakeRelease) *Registry {
	t.Helper()

	root := t.TempDir()
	for _, rel := range releases {
		dir := filepath.Join(root, rel.name, rel.version)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		files := rel.files
		if files == nil {
			files = [][2]string{{"text/markdown", "README.md"}}
		}
		data, err := json.Marshal(map[string]any{
			"description": "test crate",
			"yanked":      rel.yanked,
			"files":       files,
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, descriptorName), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	reg := New(root, nil)
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	return reg
}

func TestReload_Index(t *testing.T) {
	reg := setupTestRegistry(t,
		fakeRelease{name: "rand", version: "0.7.3"},
		fakeRelease{name: "rand", version: "0.8.5"},
		fakeRelease{name: "serde", version: "1.0.0"},
	)

	crates, releases := reg.Counts()
	if crates != 2 || releases != 3 {
		t.Errorf("expected 2 crates / 3 releases, got %d / %d", crates, releases)
	}

	names := reg.Crates()
	if len(names) != 2 || names[0] != "rand" || names[1] != "serde" {
		t.Errorf("unexpected crate names: %v", names)
	}

	versions, err := reg.Versions("rand")
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if versions[0].Version != "0.8.5" || versions[1].Version != "0.7.3" {
		t.Errorf("expected newest-first ordering, got %+v", versions)
	}
}

func TestReload_SkipsMalformedDescriptor(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broken", "1.0.0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, descriptorName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := New(root, nil)
	if err := reg.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if crates, _ := reg.Counts(); crates != 0 {
		t.Errorf("expected malformed release to be skipped, got %d crates", crates)
	}
}

func TestRelease_Lookup(t *testing.T) {
	reg := setupTestRegistry(t, fakeRelease{
		name:    "rand",
		version: "0.8.5",
		files:   [][2]string{{"text/x-rust", "src/lib.rs"}},
	})

	rel, err := reg.Release("rand", "0.8.5")
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if rel.Name != "rand" || rel.Version != "0.8.5" {
		t.Errorf("metadata mismatch: %+v", rel.Metadata)
	}
	if len(rel.Files) != 1 || rel.Files[0].Path != "src/lib.rs" {
		t.Errorf("manifest mismatch: %+v", rel.Files)
	}

	if _, err := reg.Release("rand", "9.9.9"); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestResolve_Exact(t *testing.T) {
	reg := setupTestRegistry(t, fakeRelease{name: "rand", version: "0.8.5"})

	m, err := reg.Resolve("rand", "0.8.5")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Kind != MatchExact || m.Name != "rand" || m.Version != "0.8.5" {
		t.Errorf("unexpected match: %+v", m)
	}
}

func TestResolve_Wildcard(t *testing.T) {
	reg := setupTestRegistry(t,
		fakeRelease{name: "rand", version: "0.7.3"},
		fakeRelease{name: "rand", version: "0.8.5"},
	)

	for _, requested := range []string{"*", "latest", "newest"} {
		m, err := reg.Resolve("rand", requested)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", requested, err)
		}
		if m.Kind != MatchSemver || m.Version != "0.8.5" {
			t.Errorf("Resolve(%q): unexpected match %+v", requested, m)
		}
	}
}

func TestResolve_PrefixWildcard(t *testing.T) {
	reg := setupTestRegistry(t,
		fakeRelease{name: "rand", version: "0.7.3"},
		fakeRelease{name: "rand", version: "0.8.5"},
		fakeRelease{name: "rand", version: "1.0.1"},
	)

	m, err := reg.Resolve("rand", "0.*")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Kind != MatchSemver || m.Version != "0.8.5" {
		t.Errorf("unexpected match: %+v", m)
	}

	m, err = reg.Resolve("rand", "0.7.*")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Version != "0.7.3" {
		t.Errorf("unexpected match: %+v", m)
	}
}

func TestResolve_CaretAndTilde(t *testing.T) {
	reg := setupTestRegistry(t,
		fakeRelease{name: "tokio", version: "1.2.0"},
		fakeRelease{name: "tokio", version: "1.9.4"},
		fakeRelease{name: "tokio", version: "2.0.0"},
	)

	tests := []struct {
		requested string
		want      string
	}{
		{"^1.2", "1.9.4"},
		{"^1", "1.9.4"},
		{"1.2", "1.9.4"}, // bare requirement is a caret
		{"~1.2.0", "1.2.0"},
		{"~1.9", "1.9.4"},
		{"^2", "2.0.0"},
	}
	for _, tt := range tests {
		m, err := reg.Resolve("tokio", tt.requested)
		if err != nil {
			t.Errorf("Resolve(%q) failed: %v", tt.requested, err)
			continue
		}
		if m.Kind != MatchSemver || m.Version != tt.want {
			t.Errorf("Resolve(%q) = %+v, want version %s", tt.requested, m, tt.want)
		}
	}
}

func TestResolve_ZeroMajorCaret(t *testing.T) {
	reg := setupTestRegistry(t,
		fakeRelease{name: "rand", version: "0.7.3"},
		fakeRelease{name: "rand", version: "0.8.5"},
	)

	// ^0.7 must stay within 0.7.x, not float up to 0.8.
	m, err := reg.Resolve("rand", "^0.7")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Version != "0.7.3" {
		t.Errorf("unexpected match: %+v", m)
	}
}

func TestResolve_CorrectedName(t *testing.T) {
	reg := setupTestRegistry(t, fakeRelease{name: "rustc-ap-syntax", version: "178.0.0"})

	m, err := reg.Resolve("rustc_ap_syntax", "178.0.0")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Name != "rustc-ap-syntax" {
		t.Errorf("expected canonical name, got %q", m.Name)
	}
	// A corrected name always forces a redirect, even for an exact version.
	if m.Kind != MatchSemver {
		t.Errorf("expected fuzzy match for corrected name, got %+v", m)
	}
}

func TestResolve_YankedSkippedForRanges(t *testing.T) {
	reg := setupTestRegistry(t,
		fakeRelease{name: "rand", version: "0.8.4"},
		fakeRelease{name: "rand", version: "0.8.5", yanked: true},
	)

	m, err := reg.Resolve("rand", "*")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Version != "0.8.4" {
		t.Errorf("wildcard picked yanked release: %+v", m)
	}

	// Exact requests still serve yanked releases.
	m, err = reg.Resolve("rand", "0.8.5")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Kind != MatchExact {
		t.Errorf("unexpected match: %+v", m)
	}
}

func TestResolve_PrereleaseSkippedForRanges(t *testing.T) {
	reg := setupTestRegistry(t,
		fakeRelease{name: "rand", version: "0.8.5"},
		fakeRelease{name: "rand", version: "0.9.0-alpha.1"},
	)

	m, err := reg.Resolve("rand", "*")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m.Version != "0.8.5" {
		t.Errorf("wildcard picked pre-release: %+v", m)
	}
}

func TestResolve_NotFound(t *testing.T) {
	reg := setupTestRegistry(t, fakeRelease{name: "rand", version: "0.8.5"})

	if _, err := reg.Resolve("nonexistent", "*"); err == nil {
		t.Error("expected error for unknown crate")
	}
	if _, err := reg.Resolve("rand", "2.0.0"); err == nil {
		t.Error("expected error for unsatisfied version")
	}
	if _, err := reg.Resolve("rand", "not-a-version"); err == nil {
		t.Error("expected error for malformed requirement")
	}
}
