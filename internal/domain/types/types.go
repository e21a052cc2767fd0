// Package types contains the display shapes shared by the service and the
// HTTP layer.
package types

import "github.com/okian/clickprio/internal/domain/model"

// Entry is one rendered link in a viewer's list.
type Entry struct {
	Position int    `json:"position"`
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
	Overflow bool   `json:"overflow,omitempty"`
}

// ClickResult is returned after a click was handled.
type ClickResult struct {
	Recorded  bool    `json:"recorded"`
	Duplicate bool    `json:"duplicate"`
	Score     int     `json:"score"`
	Items     []Entry `json:"items"`
}

// RefreshResult summarizes one prune pass over the catalog.
type RefreshResult struct {
	RunID         string `json:"run_id"`
	Items         int    `json:"items"`
	Changed       int    `json:"changed"`
	Failed        int    `json:"failed"`
	EventsDropped int    `json:"events_dropped"`
}

// Entries converts ranked items into display entries numbered from 1.
func Entries(items []model.Item) []Entry {
	out := make([]Entry, 0, len(items))
	for i, it := range items {
		out = append(out, Entry{
			Position: i + 1,
			ID:       it.ID,
			Title:    it.Title,
			URL:      it.URL,
			Icon:     it.Icon,
			Overflow: it.Overflow,
		})
	}
	return out
}

// ItemInput is the payload accepted when creating an item.
type ItemInput struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Icon     string   `json:"icon"`
	Groups   []string `json:"groups"`
	Overflow bool     `json:"overflow"`
}
