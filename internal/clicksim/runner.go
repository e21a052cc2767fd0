package clicksim

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/clickprio/pkg/logger"
)

const overflowTitle = "Other systems"

// randIntn returns a uniform int in [0, n).
func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

func randFloat() float64 {
	const precision = 1_000_000
	return float64(randIntn(precision)) / precision
}

// seededItem is an item created by the run.
type seededItem struct {
	id     int64
	groups []string
}

// run holds the state of one simulation.
type run struct {
	cfg     *Config
	client  *httpClient
	viewers []string
	items   []seededItem

	mu     sync.Mutex
	counts map[int64]map[string]int // item -> group -> recorded clicks

	submitted, recorded, duplicate, failed, dedupeMisses atomic.Int64
}

// Run executes a full simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("clicksim: %w", err)
	}
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("clicksim")

	r := &run{
		cfg:    cfg,
		client: newHTTPClient(cfg.BaseURL, cfg.Timeout),
		counts: make(map[int64]map[string]int),
	}
	for name := range cfg.Viewers {
		r.viewers = append(r.viewers, name)
	}
	slices.Sort(r.viewers)

	log.Info(ctx, "starting click simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("items", cfg.Items),
		logger.Int("clicks", cfg.Clicks),
		logger.Int("workers", cfg.Workers),
		logger.Int("viewers", len(r.viewers)),
	)

	if _, err := r.client.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	if err := r.seed(ctx); err != nil {
		return stats, fmt.Errorf("seed items: %w", err)
	}
	stats.ItemsCreated = len(r.items)

	r.submit(ctx)
	stats.ClicksSubmitted = int(r.submitted.Load())
	stats.ClicksRecorded = int(r.recorded.Load())
	stats.ClicksDuplicate = int(r.duplicate.Load())
	stats.ClicksFailed = int(r.failed.Load())

	if n := r.dedupeMisses.Load(); n > 0 {
		return stats, fmt.Errorf("%d resent clicks were not reported as duplicates", n)
	}

	verified, err := r.verify(ctx)
	stats.ListsVerified = verified
	stats.Duration = time.Since(stats.StartTime)
	if err != nil {
		return stats, fmt.Errorf("verify rankings: %w", err)
	}

	log.Info(ctx, "simulation finished",
		logger.Int("itemsCreated", stats.ItemsCreated),
		logger.Int("clicksSubmitted", stats.ClicksSubmitted),
		logger.Int("clicksRecorded", stats.ClicksRecorded),
		logger.Int("clicksDuplicate", stats.ClicksDuplicate),
		logger.Int("clicksFailed", stats.ClicksFailed),
		logger.Int("listsVerified", stats.ListsVerified),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// allGroups returns the sorted union of the viewers' groups.
func (r *run) allGroups() []string {
	var out []string
	for _, gs := range r.cfg.Viewers {
		for _, g := range gs {
			if !slices.Contains(out, g) {
				out = append(out, g)
			}
		}
	}
	slices.Sort(out)
	return out
}

// seed creates cfg.Items items, each visible to a random non-empty subset of
// the known groups, plus one overflow item.
func (r *run) seed(ctx context.Context) error {
	groups := r.allGroups()
	if len(groups) == 0 {
		return fmt.Errorf("viewers have no groups")
	}
	tag := uuid.NewString()[:8]

	for i := 0; i < r.cfg.Items; i++ {
		var gs []string
		for _, g := range groups {
			if randIntn(2) == 0 {
				gs = append(gs, g)
			}
		}
		if len(gs) == 0 {
			gs = []string{groups[randIntn(len(groups))]}
		}
		req := createRequest{
			Title:  "sim-" + tag + "-" + strconv.Itoa(i),
			URL:    "https://example.invalid/" + tag + "/" + strconv.Itoa(i),
			Groups: gs,
		}
		var created Entry
		if _, err := r.client.do(ctx, http.MethodPost, "/items", req, &created, http.StatusCreated); err != nil {
			return err
		}
		r.items = append(r.items, seededItem{id: created.ID, groups: gs})
	}

	overflow := createRequest{
		Title:    overflowTitle,
		URL:      "https://example.invalid/" + tag + "/other",
		Overflow: true,
	}
	_, err := r.client.do(ctx, http.MethodPost, "/items", overflow, nil, http.StatusCreated)
	return err
}

// visibleTo returns the seeded items sharing a group with viewer.
func (r *run) visibleTo(viewer string) []seededItem {
	var out []seededItem
	for _, it := range r.items {
		for _, g := range it.groups {
			if slices.Contains(r.cfg.Viewers[viewer], g) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

type click struct {
	viewer string
	item   int64
}

// submit sends cfg.Clicks clicks through cfg.Workers senders.
func (r *run) submit(ctx context.Context) {
	clicks := make(chan click, r.cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range clicks {
				r.send(ctx, c)
			}
		}()
	}

	go func() {
		defer close(clicks)
		for i := 0; i < r.cfg.Clicks; i++ {
			viewer := r.viewers[randIntn(len(r.viewers))]
			visible := r.visibleTo(viewer)
			if len(visible) == 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case clicks <- click{viewer: viewer, item: visible[randIntn(len(visible))].id}:
			}
		}
	}()

	wg.Wait()
}

func (r *run) send(ctx context.Context, c click) {
	path := "/items/" + strconv.FormatInt(c.item, 10) + "/click"
	req := clickRequest{Viewer: c.viewer, ClickID: uuid.NewString()}

	r.submitted.Add(1)
	var res clickResponse
	if _, err := r.client.do(ctx, http.MethodPost, path, req, &res, http.StatusOK); err != nil {
		r.failed.Add(1)
		if r.cfg.Verbose {
			logger.Get().Named("clicksim").Warn(ctx, "click failed", logger.Error(err))
		}
		return
	}
	if res.Recorded {
		r.recorded.Add(1)
		r.count(c)
	}

	if randFloat() >= r.cfg.DuplicateRate {
		return
	}
	r.submitted.Add(1)
	var again clickResponse
	if _, err := r.client.do(ctx, http.MethodPost, path, req, &again, http.StatusOK); err != nil {
		r.failed.Add(1)
		return
	}
	if again.Duplicate {
		r.duplicate.Add(1)
		return
	}
	r.dedupeMisses.Add(1)
	if again.Recorded {
		r.count(c)
	}
}

// count applies a recorded click to the local ledger: one event under each
// of the viewer's distinct groups.
func (r *run) count(c click) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byGroup := r.counts[c.item]
	if byGroup == nil {
		byGroup = make(map[string]int)
		r.counts[c.item] = byGroup
	}
	var seen []string
	for _, g := range r.cfg.Viewers[c.viewer] {
		if slices.Contains(seen, g) {
			continue
		}
		seen = append(seen, g)
		byGroup[g]++
	}
}
