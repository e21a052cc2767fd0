// Package service wires the ledger, retention, scoring, ranking and
// engagement packages to the item store and serves the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/clickprio/internal/adapters/directory"
	"github.com/okian/clickprio/internal/adapters/mq/queue"
	"github.com/okian/clickprio/internal/adapters/mq/worker"
	"github.com/okian/clickprio/internal/adapters/repository"
	"github.com/okian/clickprio/internal/domain/dedupe"
	"github.com/okian/clickprio/internal/domain/engagement"
	"github.com/okian/clickprio/internal/domain/ledger"
	"github.com/okian/clickprio/internal/domain/model"
	"github.com/okian/clickprio/internal/domain/ranking"
	"github.com/okian/clickprio/internal/domain/retention"
	"github.com/okian/clickprio/internal/domain/scoring"
	"github.com/okian/clickprio/internal/domain/types"
	"github.com/okian/clickprio/pkg/logger"
	"github.com/okian/clickprio/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

// Service implements the API dependencies for the click ranking system.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	resolver directory.Resolver
	deduper  dedupe.Deduper
	jobs     *queue.InMemoryQueue
	pool     *worker.Pool

	pruner   *retention.Pruner
	ranker   *ranking.Ranker
	recorder *engagement.Recorder

	catalog *catalog
	locks   *keyedMutex

	// Configuration
	window          time.Duration
	limit           int
	refreshInterval time.Duration
	workerCount     int
	queueSize       int
	dedupeSize      int
	clickRetries    int
	clock           model.Clock

	// State
	started bool
	stopCh  chan struct{}
	cancel  context.CancelFunc
	loops   sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service over store and resolver.
func New(store repository.Store, resolver directory.Resolver, opts ...Option) *Service {
	s := &Service{
		store:           store,
		resolver:        resolver,
		catalog:         newCatalog(),
		locks:           newKeyedMutex(),
		window:          retention.DefaultWindow,
		limit:           ranking.DefaultLimit,
		refreshInterval: 24 * time.Hour,
		workerCount:     runtime.NumCPU(),
		queueSize:       10_000,
		dedupeSize:      100_000,
		clickRetries:    3,
		clock:           model.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.pruner = retention.NewPruner(retention.WithWindow(s.window))
	s.ranker = ranking.NewRanker(ranking.WithLimit(s.limit))
	s.recorder = engagement.NewRecorder(engagement.WithClock(s.clock))
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithClock(s.clock),
	)
	return s
}

// Start launches the prune workers, loads the catalog once and schedules the
// periodic refresh.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}

	s.logger.Info(ctx, "starting click ranking service...")

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopCh = make(chan struct{})
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, s)
	s.pool.Start(runCtx)
	s.started = true
	s.mu.Unlock()

	if res, err := s.Refresh(ctx); err != nil {
		// The catalog stays empty until the store answers.
		s.logger.Warn(ctx, "initial refresh failed", logger.Error(err))
	} else {
		s.logger.Info(ctx, "initial refresh done",
			logger.Int("items", res.Items),
			logger.Int("changed", res.Changed),
		)
	}

	if s.refreshInterval > 0 {
		s.loops.Add(1)
		go s.refreshLoop(runCtx)
	}

	s.logger.Info(ctx, "click ranking service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("rankingLimit", s.limit),
		logger.Duration("retentionWindow", s.window),
		logger.Duration("refreshInterval", s.refreshInterval),
	)
	return nil
}

// Stop drains the prune queue and stops background work. The store is owned
// by the caller and left open.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	pool, cancel := s.pool, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping click ranking service...")

	shutdownCtx, done := context.WithTimeout(ctx, shutdownTimeout)
	defer done()
	if err := pool.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	cancel()
	s.loops.Wait()

	s.logger.Info(ctx, "click ranking service stopped")
}

func (s *Service) refreshLoop(ctx context.Context) {
	defer s.loops.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrStopped) {
				s.logger.Warn(ctx, "scheduled refresh failed", logger.Error(err))
			}
		}
	}
}

// Display renders the list for viewerName. Ledgers are pruned in memory for
// scoring; those that changed are queued for write-back. If the store cannot
// be read the last loaded catalog is used.
func (s *Service) Display(ctx context.Context, viewerName string) ([]types.Entry, error) {
	viewer := s.viewer(ctx, viewerName)

	if err := s.loadCatalog(ctx); err != nil {
		s.logger.Warn(ctx, "item store unavailable, serving cached catalog",
			logger.String("viewer", viewer.Name),
			logger.Error(err),
		)
	}
	return s.render(viewer, s.catalog.snapshot()), nil
}

// loadCatalog reads every item, prunes the ledgers in memory and replaces the
// catalog. Changed ledgers are queued for write-back.
func (s *Service) loadCatalog(ctx context.Context) error {
	rows, err := s.store.List(ctx)
	if err != nil {
		metrics.RecordStoreError("list")
		return fmt.Errorf("load catalog: %w", err)
	}

	items := make([]model.Item, 0, len(rows))
	stale := make([]int64, 0)
	for _, row := range rows {
		it := s.toItem(ctx, row)
		if pruned, changed := s.pruner.Prune(it.Ledger); changed {
			it.Ledger = pruned
			stale = append(stale, it.ID)
		}
		items = append(items, it)
	}
	s.catalog.replace(items, s.clock.Now())
	metrics.UpdateTotalItems(len(items))

	if len(stale) > 0 {
		s.queueWriteBacks(ctx, stale)
	}
	return nil
}

// queueWriteBacks hands changed ledgers to the prune workers without waiting.
// Items that do not fit are left for the next refresh.
func (s *Service) queueWriteBacks(ctx context.Context, ids []int64) {
	s.mu.RLock()
	jobs := s.jobs
	s.mu.RUnlock()
	if jobs == nil || jobs.IsClosed() {
		return
	}
	for _, id := range ids {
		if err := jobs.Enqueue(ctx, queue.Job{ItemID: id, RunID: "display"}); err != nil {
			s.logger.Debug(ctx, "write-back not queued", logger.Int64("item_id", id), logger.Error(err))
			return
		}
	}
}

// Click records one engagement by viewerName on itemID. A repeated clickID for
// the same item is acknowledged without recording. Clicks on the overflow
// entry are never recorded.
func (s *Service) Click(ctx context.Context, viewerName string, itemID int64, clickID string) (types.ClickResult, error) {
	start := time.Now()
	defer func() { metrics.RecordClickLatency(float64(time.Since(start).Milliseconds())) }()

	viewer := s.viewer(ctx, viewerName)

	dedupeKey := ""
	if clickID != "" {
		dedupeKey = fmt.Sprintf("%d:%s", itemID, clickID)
		if s.deduper.SeenAndRecord(ctx, dedupeKey) {
			metrics.RecordClickDuplicate()
			s.logger.Debug(ctx, "duplicate click", logger.Int64("item_id", itemID), logger.String("click_id", clickID))
			return types.ClickResult{
				Duplicate: true,
				Items:     s.render(viewer, s.catalog.snapshot()),
			}, nil
		}
	}

	item, recorded, err := s.mutate(ctx, itemID, func(it model.Item) (model.Ledger, bool) {
		if it.Overflow || len(viewer.UniqueGroups()) == 0 {
			return nil, false
		}
		// The new event moves the group's window forward.
		next, _ := s.pruner.Prune(s.recorder.Record(it.Ledger, viewer))
		return next, true
	})
	if err != nil {
		if dedupeKey != "" {
			s.deduper.Unrecord(ctx, dedupeKey)
		}
		return types.ClickResult{}, err
	}

	if s.catalog.lastLoad().IsZero() {
		if err := s.loadCatalog(ctx); err != nil {
			s.logger.Warn(ctx, "catalog not loaded, list holds clicked item only", logger.Error(err))
		}
	}

	switch {
	case item.Overflow:
		metrics.RecordClickOverflow()
	case recorded:
		metrics.RecordClickRecorded()
	}

	s.logger.Debug(ctx, "click handled",
		logger.Int64("item_id", itemID),
		logger.String("viewer", viewer.Name),
		logger.Bool("recorded", recorded),
	)

	return types.ClickResult{
		Recorded: recorded,
		Score:    scoring.Aggregate(item.Ledger, viewer),
		Items:    s.render(viewer, s.catalog.snapshot()),
	}, nil
}

// PruneItem prunes one item's stored ledger and writes it back if it changed.
// It is the prune workers' unit of work.
func (s *Service) PruneItem(ctx context.Context, itemID int64) (queue.Result, error) {
	var dropped int
	_, changed, err := s.mutate(ctx, itemID, func(it model.Item) (model.Ledger, bool) {
		pruned, changed := s.pruner.Prune(it.Ledger)
		dropped = it.Ledger.Total() - pruned.Total()
		return pruned, changed
	})
	if err != nil {
		return queue.Result{}, err
	}
	if changed {
		metrics.RecordLedgerWriteBack()
		metrics.RecordEventsPruned(dropped)
	}
	return queue.Result{Changed: changed, Dropped: dropped}, nil
}

// Refresh reloads the catalog and prunes every stored ledger through the
// worker pool. A failing item is counted and skipped.
func (s *Service) Refresh(ctx context.Context) (types.RefreshResult, error) {
	start := time.Now()
	res := types.RefreshResult{RunID: uuid.NewString()}
	log := s.logger.Named("refresh")

	rows, err := s.store.List(ctx)
	if err != nil {
		metrics.RecordStoreError("list")
		return res, fmt.Errorf("refresh %s: list items: %w", res.RunID, err)
	}
	items := make([]model.Item, 0, len(rows))
	for _, row := range rows {
		it := s.toItem(ctx, row)
		it.Ledger, _ = s.pruner.Prune(it.Ledger)
		items = append(items, it)
	}
	s.catalog.replace(items, s.clock.Now())
	metrics.UpdateTotalItems(len(items))
	res.Items = len(items)

	results := make(chan queue.Result, len(items))
	done := func(r queue.Result) { results <- r }

	s.mu.RLock()
	jobs, stopCh := s.jobs, s.stopCh
	s.mu.RUnlock()

	// Only jobs handed to the pool can be cut short by Stop.
	var stopped <-chan struct{}
	for _, it := range items {
		job := queue.Job{ItemID: it.ID, RunID: res.RunID, Done: done}
		if jobs != nil {
			if err := jobs.Enqueue(ctx, job); err == nil {
				stopped = stopCh
				continue
			}
		}
		r, err := s.PruneItem(ctx, it.ID)
		r.Err = err
		job.Finish(r)
	}

	for i := 0; i < len(items); i++ {
		select {
		case r := <-results:
			switch {
			case r.Err != nil:
				res.Failed++
				log.Warn(ctx, "item skipped",
					logger.String("run_id", res.RunID),
					logger.Int64("item_id", r.ItemID),
					logger.Error(r.Err),
				)
			case r.Changed:
				res.Changed++
				res.EventsDropped += r.Dropped
			}
		case <-ctx.Done():
			return res, fmt.Errorf("refresh %s: %w", res.RunID, ctx.Err())
		case <-stopped:
			return res, fmt.Errorf("refresh %s: %w", res.RunID, ErrStopped)
		}
	}

	metrics.RecordPruneRun(float64(time.Since(start).Milliseconds()))
	log.Info(ctx, "refresh complete",
		logger.String("run_id", res.RunID),
		logger.Int("items", res.Items),
		logger.Int("changed", res.Changed),
		logger.Int("failed", res.Failed),
		logger.Int("events_dropped", res.EventsDropped),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

// CreateItem stores a new item with an empty ledger.
func (s *Service) CreateItem(ctx context.Context, in types.ItemInput) (types.Entry, error) {
	row, err := s.store.Create(ctx, repository.Row{
		Title:    in.Title,
		URL:      in.URL,
		Icon:     in.Icon,
		Groups:   in.Groups,
		Overflow: in.Overflow,
	})
	if err != nil {
		if !errors.Is(err, repository.ErrInvalidItem) {
			metrics.RecordStoreError("create")
		}
		return types.Entry{}, fmt.Errorf("create item: %w", err)
	}
	it := s.toItem(ctx, row)
	s.catalog.put(it)

	s.logger.Info(ctx, "item created",
		logger.Int64("item_id", it.ID),
		logger.String("title", it.Title),
		logger.Bool("overflow", it.Overflow),
	)
	return types.Entries([]model.Item{it})[0], nil
}

// mutate runs a read-modify-write cycle on one item's ledger. fn returns the
// next ledger and whether it differs. Writes are serialized per item in this
// process and conditional on the row version in the store; a conflict re-reads
// and re-applies fn up to clickRetries times.
func (s *Service) mutate(ctx context.Context, id int64, fn func(model.Item) (model.Ledger, bool)) (model.Item, bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	for attempt := 0; ; attempt++ {
		row, err := s.store.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				metrics.RecordStoreError("get")
			}
			return model.Item{}, false, fmt.Errorf("item %d: %w", id, err)
		}
		it := s.toItem(ctx, row)

		next, changed := fn(it)
		if !changed {
			s.catalog.put(it)
			return it, false, nil
		}

		encoded, err := ledger.Encode(next)
		if err != nil {
			return it, false, fmt.Errorf("item %d: encode ledger: %w", id, err)
		}

		version, err := s.store.UpdateClickCounts(ctx, id, encoded, row.Version)
		switch {
		case err == nil:
			it.Ledger = next
			it.Version = version
			s.catalog.put(it)
			return it, true, nil
		case errors.Is(err, repository.ErrConflict):
			metrics.RecordLedgerConflict()
			if attempt < s.clickRetries {
				continue
			}
			return it, false, fmt.Errorf("item %d after %d attempts: %w", id, attempt+1, err)
		default:
			metrics.RecordStoreError("update")
			return it, false, fmt.Errorf("item %d: %w", id, err)
		}
	}
}

func (s *Service) toItem(ctx context.Context, row repository.Row) model.Item {
	l, err := ledger.DecodeStrict(row.ClickCounts)
	if err != nil {
		metrics.RecordDecodeError()
		s.logger.Debug(ctx, "undecodable ledger treated as empty",
			logger.Int64("item_id", row.ID),
			logger.Error(err),
		)
		l = model.Ledger{}
	}
	return model.Item{
		ID:       row.ID,
		Title:    row.Title,
		URL:      row.URL,
		Icon:     row.Icon,
		Groups:   row.Groups,
		Overflow: row.Overflow,
		Ledger:   l,
		Version:  row.Version,
	}
}

// viewer resolves group memberships. A failed lookup is treated as a viewer
// with no groups.
func (s *Service) viewer(ctx context.Context, name string) model.Viewer {
	groups, err := s.resolver.Groups(ctx, name)
	if err != nil {
		s.logger.Warn(ctx, "group lookup failed", logger.String("viewer", name), logger.Error(err))
		groups = nil
	}
	return model.Viewer{Name: name, Groups: groups}
}

func (s *Service) render(v model.Viewer, items []model.Item) []types.Entry {
	ranked := s.ranker.Rank(v, scoring.ScoreAll(items, v))
	metrics.RecordItemsRanked(len(ranked))
	return types.Entries(ranked)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"dedupeEntries":   s.deduper.Size(),
		"rankingLimit":    s.ranker.Limit(),
		"retentionWindow": s.pruner.Window().String(),
		"refreshInterval": s.refreshInterval.String(),
		"catalogItems":    s.catalog.len(),
		"lockedItems":     s.locks.size(),
	}
	if at := s.catalog.lastLoad(); !at.IsZero() {
		stats["catalogLoadedAt"] = at.Format(time.RFC3339)
	}
	if s.jobs != nil {
		stats["queueLength"] = s.jobs.Len()
	}
	if n, err := s.store.Count(context.Background()); err == nil {
		stats["totalItems"] = n
		metrics.UpdateTotalItems(n)
	} else {
		metrics.RecordStoreError("count")
	}
	return stats
}
