package clicksim

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
)

// expectedScore is the score the service should report for item as seen by
// groups: the sum of locally counted clicks in each distinct group.
func expectedScore(counts map[string]int, groups []string) int {
	var seen []string
	score := 0
	for _, g := range groups {
		if slices.Contains(seen, g) {
			continue
		}
		seen = append(seen, g)
		score += counts[g]
	}
	return score
}

// checkOrder reports the first violation in entries: the overflow entry must
// be last, the ranked part must not exceed limit, and seeded items must appear
// with non-increasing expected scores. Entries not in scores are ignored.
func checkOrder(entries []Entry, scores map[int64]int, limit int) error {
	ranked := entries
	for i, e := range entries {
		if e.Overflow {
			if i != len(entries)-1 {
				return fmt.Errorf("overflow entry %d at position %d of %d", e.ID, i+1, len(entries))
			}
			ranked = entries[:i]
		}
	}
	if len(ranked) > limit {
		return fmt.Errorf("%d ranked entries exceed limit %d", len(ranked), limit)
	}

	prev, prevID := -1, int64(0)
	for _, e := range ranked {
		s, ok := scores[e.ID]
		if !ok {
			continue
		}
		if prev >= 0 && s > prev {
			return fmt.Errorf("item %d (score %d) ranked below item %d (score %d)", e.ID, s, prevID, prev)
		}
		prev, prevID = s, e.ID
	}
	return nil
}

// verify fetches every viewer's list and checks it against the local counts.
// It returns the number of lists checked.
func (r *run) verify(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	verified := 0
	for _, viewer := range r.viewers {
		groups := r.cfg.Viewers[viewer]
		scores := make(map[int64]int, len(r.items))
		for _, it := range r.items {
			scores[it.id] = expectedScore(r.counts[it.id], groups)
		}

		var list listResponse
		path := "/items?viewer=" + url.QueryEscape(viewer)
		if _, err := r.client.do(ctx, http.MethodGet, path, nil, &list, http.StatusOK); err != nil {
			return verified, err
		}
		if err := checkOrder(list.Items, scores, r.cfg.Limit); err != nil {
			return verified, fmt.Errorf("viewer %s: %w", viewer, err)
		}
		verified++
	}
	return verified, nil
}
