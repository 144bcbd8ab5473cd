// Package policy applies per-tenant trust policy to retrieved chunks before
// they can become evidence.
package policy

import "strings"

// Allowlist restricts which sources may contribute evidence. An empty
// allowlist permits every source; a non-empty one permits exact matches only.
type Allowlist struct {
	sources map[string]struct{}
}

// NewAllowlist builds an Allowlist from the given source names. Entries are
// trimmed and blank entries dropped, so a config file with stray whitespace
// does not silently block everything.
func NewAllowlist(sources []string) *Allowlist {
	a := &Allowlist{}
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if a.sources == nil {
			a.sources = make(map[string]struct{})
		}
		a.sources[s] = struct{}{}
	}
	return a
}

// Allows reports whether the source may contribute evidence.
func (a *Allowlist) Allows(source string) bool {
	if len(a.sources) == 0 {
		return true
	}
	_, ok := a.sources[strings.TrimSpace(source)]
	return ok
}

// Open reports whether the allowlist permits every source.
func (a *Allowlist) Open() bool {
	return len(a.sources) == 0
}
