// Package dedupe suppresses repeated click submissions.
//
// Clients send a click id with every click; a retried or double submitted
// request carries the same id and must not append a second event.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/clickprio/internal/domain/model"
)

// Deduper records seen click keys.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen and records it if
	// not. Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a failed click can be retried.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type entry struct {
	key  string
	seen time.Time
}

// inMemoryDeduper keeps keys in insertion order in a ring. When full, the
// oldest key is evicted. Keys older than ttl count as unseen.
type inMemoryDeduper struct {
	mu      sync.Mutex
	index   map[string]int // key -> ring slot
	ring    []entry
	head    int // next slot to write
	maxSize int
	ttl     time.Duration
	clock   model.Clock
	size    atomic.Int64
}

// NewInMemoryDeduper creates a bounded deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50_000,
		clock:   model.SystemClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.maxSize <= 0 {
		d.maxSize = 1
	}
	d.index = make(map[string]int, d.maxSize)
	d.ring = make([]entry, d.maxSize)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if slot, ok := d.index[key]; ok {
		if d.ttl <= 0 || now.Sub(d.ring[slot].seen) < d.ttl {
			return true
		}
		d.ring[slot].seen = now
		return false
	}

	old := d.ring[d.head]
	if old.key != "" || !old.seen.IsZero() {
		if slot, ok := d.index[old.key]; ok && slot == d.head {
			delete(d.index, old.key)
			d.size.Add(-1)
		}
	}
	d.ring[d.head] = entry{key: key, seen: now}
	d.index[key] = d.head
	d.head = (d.head + 1) % d.maxSize
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.index[key]
	if !ok {
		return
	}
	delete(d.index, key)
	d.ring[slot] = entry{}
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
