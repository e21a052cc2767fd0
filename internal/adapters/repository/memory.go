package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/clickprio/pkg/metrics"
)

// MemoryStore is an in-process Store. Used when no database path is
// configured and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]Row
	nextID int64
	closed bool
	cfg    settings
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(_ context.Context, opts ...Option) *MemoryStore {
	return &MemoryStore{
		rows:   make(map[int64]Row),
		nextID: 1,
		cfg:    newSettings(opts),
	}
}

func copyRow(r Row) Row {
	r.Groups = slices.Clone(r.Groups)
	return r
}

func (s *MemoryStore) List(_ context.Context) ([]Row, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds())) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, copyRow(r))
	}
	slices.SortFunc(out, func(a, b Row) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Row{}, fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	r, ok := s.rows[id]
	if !ok {
		return Row{}, fmt.Errorf("get item %d: %w", id, ErrNotFound)
	}
	return copyRow(r), nil
}

func (s *MemoryStore) Create(_ context.Context, r Row) (Row, error) {
	r = normalize(r, s.cfg.overflowTitle)
	if r.Title == "" || strings.TrimSpace(r.URL) == "" {
		return Row{}, fmt.Errorf("%w: title and url are required", ErrInvalidItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Row{}, fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	r.ID = s.nextID
	r.Version = 1
	s.nextID++
	s.rows[r.ID] = copyRow(r)
	metrics.UpdateTotalItems(len(s.rows))
	return r, nil
}

func (s *MemoryStore) UpdateClickCounts(_ context.Context, id int64, clickCounts string, expectedVersion int64) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds())) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	r, ok := s.rows[id]
	if !ok {
		return 0, fmt.Errorf("update item %d: %w", id, ErrNotFound)
	}
	if r.Version != expectedVersion {
		return 0, fmt.Errorf("update item %d at version %d (stored %d): %w", id, expectedVersion, r.Version, ErrConflict)
	}
	r.ClickCounts = clickCounts
	r.Version++
	s.rows[id] = r
	return r.Version, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	return len(s.rows), nil
}

// Close marks the store unavailable. Subsequent calls fail with
// ErrUnavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
