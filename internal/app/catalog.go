package service

import (
	"slices"
	"sync"
	"time"

	"github.com/okian/clickprio/internal/domain/model"
)

// catalog is the last known set of items with pruned ledgers. It lets a click
// re-rank without reloading everything and backs display when the store is down.
type catalog struct {
	mu       sync.RWMutex
	items    map[int64]model.Item
	loadedAt time.Time
}

func newCatalog() *catalog {
	return &catalog{items: make(map[int64]model.Item)}
}

// replace swaps in a freshly loaded item set, keeping any entry that a
// concurrent write already advanced past the loaded version.
func (c *catalog) replace(items []model.Item, at time.Time) {
	next := make(map[int64]model.Item, len(items))
	c.mu.Lock()
	for _, it := range items {
		if cur, ok := c.items[it.ID]; ok && cur.Version > it.Version {
			it = cur
		}
		next[it.ID] = it
	}
	c.items = next
	c.loadedAt = at
	c.mu.Unlock()
}

// put stores it unless the catalog already holds a newer version.
func (c *catalog) put(it model.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.items[it.ID]; ok && cur.Version > it.Version {
		return
	}
	c.items[it.ID] = it
}

// snapshot returns items ordered by id.
func (c *catalog) snapshot() []model.Item {
	c.mu.RLock()
	out := make([]model.Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Item) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (c *catalog) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *catalog) lastLoad() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}
