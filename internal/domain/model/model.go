// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"time"
)

// Event is a single recorded click. Immutable once created.
type Event struct {
	Timestamp time.Time
}

// Ledger maps a group name to the ordered clicks recorded for that group.
// Operations in the domain packages never mutate a Ledger they are given;
// they return a new value instead.
type Ledger map[string][]Event

// Clone returns a deep copy whose slices do not alias l.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for group, events := range l {
		cp := make([]Event, len(events))
		copy(cp, events)
		out[group] = cp
	}
	return out
}

// Total returns the number of events across all groups.
func (l Ledger) Total() int {
	n := 0
	for _, events := range l {
		n += len(events)
	}
	return n
}

// Equal reports whether both ledgers hold the same groups with the same
// events in the same order.
func (l Ledger) Equal(other Ledger) bool {
	if len(l) != len(other) {
		return false
	}
	for group, events := range l {
		o, ok := other[group]
		if !ok || len(o) != len(events) {
			return false
		}
		for i := range events {
			if !events[i].Timestamp.Equal(o[i].Timestamp) {
				return false
			}
		}
	}
	return true
}

// Item is a rankable link shown to viewers.
type Item struct {
	ID     int64
	Title  string
	URL    string
	Icon   string
	Groups []string
	// Overflow marks the single catch-all entry that is pinned last and
	// never scored or recorded.
	Overflow bool
	Ledger   Ledger
	// Version is the store's optimistic concurrency token.
	Version int64
}

// VisibleTo reports whether the item may be shown to v. An overflow item
// with no groups is visible to everyone.
func (it Item) VisibleTo(v Viewer) bool {
	if it.Overflow && len(it.Groups) == 0 {
		return true
	}
	for _, g := range it.Groups {
		if slices.Contains(v.Groups, g) {
			return true
		}
	}
	return false
}

// Viewer is the acting user, identified by resolved group memberships.
type Viewer struct {
	Name   string
	Groups []string
}

// UniqueGroups returns the viewer's groups with duplicates and empty names
// removed, preserving first occurrence order.
func (v Viewer) UniqueGroups() []string {
	out := make([]string, 0, len(v.Groups))
	for _, g := range v.Groups {
		if g == "" || slices.Contains(out, g) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// ScoredItem pairs an item with the viewer specific score.
type ScoredItem struct {
	Item  Item
	Score int
}
