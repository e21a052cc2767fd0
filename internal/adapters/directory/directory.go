// Package directory resolves a viewer's group memberships.
package directory

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Resolver returns the groups a viewer belongs to. Unknown viewers have no
// groups; that is not an error.
type Resolver interface {
	Groups(ctx context.Context, viewer string) ([]string, error)
}

// Static is a Resolver backed by a fixed viewer to groups table, typically
// loaded from configuration. Names are matched case-insensitively.
type Static struct {
	mu     sync.RWMutex
	groups map[string][]string
}

// NewStatic builds a Static resolver from a viewer to groups table.
func NewStatic(table map[string][]string) *Static {
	s := &Static{groups: make(map[string][]string, len(table))}
	for viewer, groups := range table {
		s.Set(viewer, groups)
	}
	return s
}

// Groups implements Resolver.
func (s *Static) Groups(_ context.Context, viewer string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.groups[key(viewer)]), nil
}

// Set replaces one viewer's memberships. Blank group names are dropped.
func (s *Static) Set(viewer string, groups []string) {
	clean := make([]string, 0, len(groups))
	for _, g := range groups {
		if g = strings.TrimSpace(g); g != "" {
			clean = append(clean, g)
		}
	}
	s.mu.Lock()
	s.groups[key(viewer)] = clean
	s.mu.Unlock()
}

func key(viewer string) string {
	return strings.ToLower(strings.TrimSpace(viewer))
}
