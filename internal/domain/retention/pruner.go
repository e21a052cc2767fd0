// Package retention drops clicks that fall outside the retention window.
//
// The window floats per group: each group is anchored to its own newest
// click, not to the wall clock, so a group that has gone quiet keeps the
// history it had when it was last active.
package retention

import (
	"slices"
	"time"

	"github.com/okian/clickprio/internal/domain/model"
)

// DefaultWindow is the span of history kept behind each group's newest click.
const DefaultWindow = 7 * 24 * time.Hour

// Option applies a configuration option to the Pruner.
type Option func(*Pruner)

// WithWindow sets the retention window. Non-positive values are ignored.
func WithWindow(window time.Duration) Option {
	return func(p *Pruner) {
		if window > 0 {
			p.window = window
		}
	}
}

// Pruner removes stale events from ledgers.
type Pruner struct {
	window time.Duration
}

// NewPruner creates a pruner with the default 7 day window.
func NewPruner(opts ...Option) *Pruner {
	p := &Pruner{window: DefaultWindow}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Window returns the configured retention window.
func (p *Pruner) Window() time.Duration {
	return p.window
}

// Prune returns a copy of l with every group trimmed to
// [newest-window, newest] and reports whether anything was dropped.
// Events with a zero timestamp sort last and are always dropped. Group keys
// are never removed, and surviving events keep their relative order.
func (p *Pruner) Prune(l model.Ledger) (model.Ledger, bool) {
	out := make(model.Ledger, len(l))
	changed := false
	for group, events := range l {
		kept := p.pruneGroup(events)
		if len(kept) != len(events) {
			changed = true
		}
		out[group] = kept
	}
	return out, changed
}

func (p *Pruner) pruneGroup(events []model.Event) []model.Event {
	kept := make([]model.Event, 0, len(events))
	if len(events) == 0 {
		return kept
	}
	newest, ok := newestValid(events)
	if !ok {
		return kept
	}
	cutoff := newest.Add(-p.window)
	for _, e := range events {
		if e.Timestamp.IsZero() || e.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// newestValid finds the newest non-zero timestamp using a stable
// descending sort over a copy.
func newestValid(events []model.Event) (time.Time, bool) {
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b model.Event) int {
		return compareDesc(a.Timestamp, b.Timestamp)
	})
	if sorted[0].Timestamp.IsZero() {
		return time.Time{}, false
	}
	return sorted[0].Timestamp, true
}

// compareDesc orders newest first with zero times treated as -infinity.
func compareDesc(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return b.Compare(a)
}
