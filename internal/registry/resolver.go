package registry

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// MatchKind says how a requested version was satisfied.
type MatchKind int

// Match kinds.
const (
	// MatchExact means the requested token named a stored release directly.
	MatchExact MatchKind = iota
	// MatchSemver means the request was satisfied through relaxed rules
	// (wildcard, semver requirement, or a corrected crate name). Callers
	// must redirect to the canonical URL.
	MatchSemver
)

// Match is the outcome of a successful version resolution. Name is the
// canonical crate name, which may differ from the requested one when a
// '-'/'_' typo was corrected.
type Match struct {
	Name    string
	Version string
	Kind    MatchKind
}

// Resolve determines the concrete version to serve for a crate. requested
// may be an exact version, a wildcard ("*", "latest", "newest", "1.*"), or a
// caret/tilde semver requirement. A pure query with no side effects.
func (r *Registry) Resolve(name, requested string) (Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	canonical := name
	releases := r.crates[name]
	corrected := false

	if len(releases) == 0 {
		if alt, ok := r.normalized[normalizeName(name)]; ok && alt != name {
			canonical = alt
			releases = r.crates[alt]
			corrected = true
		}
	}
	if len(releases) == 0 {
		return Match{}, ErrNotFound
	}

	for _, rel := range releases {
		if rel.Version == requested {
			kind := MatchExact
			if corrected {
				kind = MatchSemver
			}
			return Match{Name: canonical, Version: rel.Version, Kind: kind}, nil
		}
	}

	version, ok := matchRequirement(releases, requested)
	if !ok {
		return Match{}, ErrNotFound
	}
	return Match{Name: canonical, Version: version, Kind: MatchSemver}, nil
}

// matchRequirement picks the best release satisfying a non-exact version
// request. Releases are already ordered newest first; yanked releases and
// pre-releases only match when nothing better does.
func matchRequirement(releases []*Release, requested string) (string, bool) {
	matches, ok := requirementMatcher(requested)
	if !ok {
		return "", false
	}

	var yankedHit, prereleaseHit string
	for _, rel := range releases {
		if !matches(rel.Version) {
			continue
		}
		switch {
		case rel.Yanked:
			if yankedHit == "" {
				yankedHit = rel.Version
			}
		case semver.Prerelease(vtag(rel.Version)) != "":
			if prereleaseHit == "" {
				prereleaseHit = rel.Version
			}
		default:
			return rel.Version, true
		}
	}
	if prereleaseHit != "" {
		return prereleaseHit, true
	}
	if yankedHit != "" {
		return yankedHit, true
	}
	return "", false
}

// requirementMatcher compiles a requested version token into a predicate
// over stored version strings. The second return value is false when the
// token is not a recognized requirement form.
func requirementMatcher(requested string) (func(string) bool, bool) {
	switch requested {
	case "", "*", "latest", "newest":
		return func(string) bool { return true }, true
	}

	if strings.HasSuffix(requested, "*") {
		// Prefix wildcard such as "1.*" or "1.2.*".
		prefix := strings.TrimSuffix(requested, "*")
		if prefix != "" && !strings.HasSuffix(prefix, ".") {
			return nil, false
		}
		return func(v string) bool {
			return strings.HasPrefix(v, prefix)
		}, true
	}

	req := requested
	tilde := false
	switch {
	case strings.HasPrefix(req, "^"):
		req = req[1:]
	case strings.HasPrefix(req, "~"):
		req = req[1:]
		tilde = true
	}
	// A bare "1" or "1.2" is a caret requirement, as in cargo.

	lower, specified, ok := parseVersionParts(req)
	if !ok {
		return nil, false
	}

	upper := upperBound(lower, specified, tilde)
	return func(v string) bool {
		c, _, ok := parseVersionParts(v)
		if !ok {
			return false
		}
		return compareParts(c, lower) >= 0 && compareParts(c, upper) < 0
	}, true
}

// parseVersionParts extracts the numeric major.minor.patch triple from a
// version or requirement string, dropping any pre-release or build suffix.
// specified reports how many components were actually present.
func parseVersionParts(v string) (parts [3]int, specified int, ok bool) {
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return parts, 0, false
	}

	fields := strings.Split(v, ".")
	if len(fields) > 3 {
		return parts, 0, false
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return parts, 0, false
		}
		parts[i] = n
	}
	return parts, len(fields), true
}

// upperBound computes the exclusive upper limit of a caret or tilde
// requirement with cargo's semantics: tilde bumps the last specified
// component below patch level; caret bumps the leftmost non-zero one.
func upperBound(lower [3]int, specified int, tilde bool) [3]int {
	if tilde {
		if specified >= 2 {
			return [3]int{lower[0], lower[1] + 1, 0}
		}
		return [3]int{lower[0] + 1, 0, 0}
	}

	switch {
	case lower[0] > 0:
		return [3]int{lower[0] + 1, 0, 0}
	case specified >= 2 && lower[1] > 0:
		return [3]int{0, lower[1] + 1, 0}
	case specified == 3:
		return [3]int{0, 0, lower[2] + 1}
	case specified == 2:
		return [3]int{0, lower[1] + 1, 0}
	default:
		return [3]int{1, 0, 0}
	}
}

func compareParts(a, b [3]int) int {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
