// Package repository persists items and their raw click ledgers.
//
// Rows carry the ledger as the opaque ClickCounts string; decoding belongs
// to the domain. Writes are conditional on the row version so concurrent
// read-modify-write cycles cannot silently overwrite each other.
package repository

import (
	"context"
	"strings"
)

// Row is the stored shape of an item.
type Row struct {
	ID          int64
	Title       string
	URL         string
	Icon        string
	Groups      []string
	Overflow    bool
	ClickCounts string
	Version     int64
}

// Store provides read/write access to items.
type Store interface {
	// List returns all rows ordered by id.
	List(ctx context.Context) ([]Row, error)

	// Get returns a single row. Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id int64) (Row, error)

	// Create inserts a row and returns it with ID and Version assigned.
	Create(ctx context.Context, r Row) (Row, error)

	// UpdateClickCounts replaces the stored ledger if the row is still at
	// expectedVersion and returns the new version. Returns ErrConflict when
	// the row moved on, ErrNotFound when it does not exist.
	UpdateClickCounts(ctx context.Context, id int64, clickCounts string, expectedVersion int64) (int64, error)

	// Count returns the number of stored items.
	Count(ctx context.Context) (int, error)

	Close() error
}

// ParseGroups splits a comma separated group list, trimming blanks.
func ParseGroups(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinGroups is the inverse of ParseGroups.
func JoinGroups(groups []string) string {
	return strings.Join(groups, ",")
}

func normalize(r Row, overflowTitle string) Row {
	r.Title = strings.TrimSpace(r.Title)
	r.Groups = ParseGroups(JoinGroups(r.Groups))
	if overflowTitle != "" && r.Title == overflowTitle {
		r.Overflow = true
	}
	if strings.TrimSpace(r.ClickCounts) == "" {
		r.ClickCounts = "{}"
	}
	return r
}
