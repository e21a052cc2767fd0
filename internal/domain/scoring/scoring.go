// Package scoring computes viewer specific engagement scores from ledgers.
package scoring

import (
	"github.com/okian/clickprio/internal/domain/model"
)

// Aggregate returns the number of recorded clicks across the viewer's
// groups. Groups missing from the ledger count as zero and a group listed
// twice on the viewer is counted once.
func Aggregate(l model.Ledger, v model.Viewer) int {
	score := 0
	for _, g := range v.UniqueGroups() {
		score += len(l[g])
	}
	return score
}

// ScoreAll pairs every item with its score for v, preserving input order.
// Overflow items are never scored and carry a zero score.
func ScoreAll(items []model.Item, v model.Viewer) []model.ScoredItem {
	out := make([]model.ScoredItem, 0, len(items))
	for _, it := range items {
		s := 0
		if !it.Overflow {
			s = Aggregate(it.Ledger, v)
		}
		out = append(out, model.ScoredItem{Item: it, Score: s})
	}
	return out
}
