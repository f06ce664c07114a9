package channel

import (
	"strconv"
	"strings"

	"github.com/doesdev/oneclick-update/internal/release"
	"github.com/doesdev/oneclick-update/internal/version"
)

// DefaultChannel is the channel for releases carrying no qualifiers.
const DefaultChannel = ""

// Map holds the latest release per channel name. Iteration order follows
// insertion order, which mirrors the upstream release-list order; the path
// resolver's equal-specificity tie-break depends on it.
type Map struct {
	names  []string
	latest map[string]*release.Release
}

func NewMap() *Map {
	return &Map{latest: make(map[string]*release.Release)}
}

func (m *Map) Get(name string) (*release.Release, bool) {
	r, ok := m.latest[name]
	return r, ok
}

// Names returns the channel names in insertion order.
func (m *Map) Names() []string {
	return m.names
}

func (m *Map) Len() int {
	return len(m.names)
}

func (m *Map) set(name string, r *release.Release) {
	if _, ok := m.latest[name]; !ok {
		m.names = append(m.names, name)
	}
	m.latest[name] = r
}

// Classify groups releases into channels and records the latest release on
// each. The channel name joins the tag's build metadata, its first
// non-numeric pre-release token, and a "prerelease" marker for releases
// flagged as pre-release upstream, with "/" between the non-empty parts.
// Releases with invalid tags are skipped; a malformed tag never aborts the
// rest of the list. Reclassifying a release is idempotent.
func Classify(releases []*release.Release, existing *Map) *Map {
	m := existing
	if m == nil {
		m = NewMap()
	}

	for _, r := range releases {
		v := version.Parse(r.Tag)
		if !v.Valid {
			continue
		}

		qualifiers := make([]string, 0, 3)
		if i := strings.Index(r.Tag, "+"); i >= 0 && i < len(r.Tag)-1 {
			qualifiers = append(qualifiers, r.Tag[i+1:])
		}
		if pre := firstNonNumeric(v.Prerelease); pre != "" {
			qualifiers = append(qualifiers, pre)
		}
		if r.Prerelease {
			qualifiers = append(qualifiers, "prerelease")
		}

		name := strings.ToLower(strings.Join(qualifiers, "/"))
		r.Channel = name

		if incumbent, ok := m.Get(name); ok {
			// ties keep the incumbent, first seen wins
			if v.AtMost(version.Parse(incumbent.Tag)) {
				continue
			}
		}
		m.set(name, r)
	}

	return m
}

func firstNonNumeric(tokens []string) string {
	for _, t := range tokens {
		if _, err := strconv.Atoi(t); err != nil {
			return t
		}
	}
	return ""
}
