package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/clickprio/pkg/metrics"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteBusyTimeoutMS = 10_000

const schema = `
CREATE TABLE IF NOT EXISTS items (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    title        TEXT    NOT NULL,
    url          TEXT    NOT NULL,
    icon         TEXT    NOT NULL DEFAULT '',
    group_list   TEXT    NOT NULL DEFAULT '',
    overflow     INTEGER NOT NULL DEFAULT 0,
    click_counts TEXT    NOT NULL DEFAULT '{}',
    version      INTEGER NOT NULL DEFAULT 1
);
`

// SQLiteStore is a Store backed by an SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	cfg settings
}

// OpenSQLiteStore opens (creating if needed) the database at path with WAL
// journaling and applies the items schema. path ":memory:" opens a private
// in-memory database.
func OpenSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite store: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite store: %s: %w", strings.TrimSpace(p), err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite store: ping: %w", err)
	}
	return &SQLiteStore{db: db, cfg: newSettings(opts)}, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(sc rowScanner) (Row, error) {
	var (
		r        Row
		groups   string
		overflow int
	)
	if err := sc.Scan(&r.ID, &r.Title, &r.URL, &r.Icon, &groups, &overflow, &r.ClickCounts, &r.Version); err != nil {
		return Row{}, err
	}
	r.Groups = ParseGroups(groups)
	r.Overflow = overflow != 0
	return r, nil
}

const selectColumns = `SELECT id, title, url, icon, group_list, overflow, click_counts, version FROM items`

func (s *SQLiteStore) List(ctx context.Context) ([]Row, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds())) }()

	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, unavailable("list items", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, unavailable("scan item", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list items", err)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (Row, error) {
	r, err := scanRow(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("get item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Row{}, unavailable(fmt.Sprintf("get item %d", id), err)
	}
	return r, nil
}

func (s *SQLiteStore) Create(ctx context.Context, r Row) (Row, error) {
	r = normalize(r, s.cfg.overflowTitle)
	if r.Title == "" || strings.TrimSpace(r.URL) == "" {
		return Row{}, fmt.Errorf("%w: title and url are required", ErrInvalidItem)
	}
	overflow := 0
	if r.Overflow {
		overflow = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (title, url, icon, group_list, overflow, click_counts, version) VALUES (?, ?, ?, ?, ?, ?, 1)`,
		r.Title, r.URL, r.Icon, JoinGroups(r.Groups), overflow, r.ClickCounts)
	if err != nil {
		return Row{}, unavailable("create item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Row{}, unavailable("create item", err)
	}
	r.ID = id
	r.Version = 1
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateTotalItems(n)
	}
	return r, nil
}

func (s *SQLiteStore) UpdateClickCounts(ctx context.Context, id int64, clickCounts string, expectedVersion int64) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds())) }()

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET click_counts = ?, version = version + 1 WHERE id = ? AND version = ?`,
		clickCounts, id, expectedVersion)
	if err != nil {
		return 0, unavailable(fmt.Sprintf("update item %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(fmt.Sprintf("update item %d", id), err)
	}
	if n == 0 {
		current, err := s.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("update item %d at version %d (stored %d): %w", id, expectedVersion, current.Version, ErrConflict)
	}
	return expectedVersion + 1, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, unavailable("count items", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
