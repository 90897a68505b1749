package ratelimit

import (
	"sort"
	"strings"
	"time"
)

// Policy bounds how often one client may hit the paths it covers
type Policy struct {
	Name   string
	Path   string
	Max    int
	Window time.Duration
	Block  time.Duration
}

// Table resolves request paths to policies
type Table struct {
	policies []Policy
}

// NewTable builds a table ordered from the most to the least specific path
func NewTable(policies ...Policy) *Table {
	sorted := make([]Policy, len(policies))
	copy(sorted, policies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	return &Table{policies: sorted}
}

// Resolve returns the policy with the longest path prefix matching path.
// Prefixes match on segment boundaries, so /storage/upload does not cover /storage/uploads.
func (t *Table) Resolve(path string) (Policy, bool) {
	for _, p := range t.policies {
		if matchPath(p.Path, path) {
			return p, true
		}
	}
	return Policy{}, false
}

// Policies returns the table contents, most specific first
func (t *Table) Policies() []Policy {
	out := make([]Policy, len(t.policies))
	copy(out, t.policies)
	return out
}

func matchPath(prefix, path string) bool {
	if prefix == "/" {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
