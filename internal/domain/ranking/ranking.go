// Package ranking selects and orders the items shown to a viewer.
package ranking

import (
	"slices"

	"github.com/okian/clickprio/internal/domain/model"
)

// DefaultLimit is the number of score ordered entries shown before the
// overflow entry.
const DefaultLimit = 11

// Option applies a configuration option to the Ranker.
type Option func(*Ranker)

// WithLimit sets the maximum number of ranked entries. Non-positive values
// are ignored.
func WithLimit(k int) Option {
	return func(r *Ranker) {
		if k > 0 {
			r.limit = k
		}
	}
}

// Ranker orders visible items by score.
type Ranker struct {
	limit int
}

// NewRanker creates a ranker with DefaultLimit.
func NewRanker(opts ...Option) *Ranker {
	r := &Ranker{limit: DefaultLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Limit returns the configured ranked entry cap.
func (r *Ranker) Limit() int {
	return r.limit
}

// Rank returns the display order for v:
//
//  1. items visible to v, overflow items excluded;
//  2. stable sort by score descending, ties keep input order;
//  3. truncated to the limit;
//  4. the first visible overflow item appended last.
//
// The result holds at most limit+1 items and may be empty.
func (r *Ranker) Rank(v model.Viewer, scored []model.ScoredItem) []model.Item {
	ranked := make([]model.ScoredItem, 0, len(scored))
	var overflow *model.Item
	for i := range scored {
		it := scored[i].Item
		if !it.VisibleTo(v) {
			continue
		}
		if it.Overflow {
			if overflow == nil {
				overflow = &scored[i].Item
			}
			continue
		}
		ranked = append(ranked, scored[i])
	}

	slices.SortStableFunc(ranked, func(a, b model.ScoredItem) int {
		return b.Score - a.Score
	})
	if len(ranked) > r.limit {
		ranked = ranked[:r.limit]
	}

	out := make([]model.Item, 0, len(ranked)+1)
	for _, s := range ranked {
		out = append(out, s.Item)
	}
	if overflow != nil {
		out = append(out, *overflow)
	}
	return out
}
