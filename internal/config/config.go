// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath selects the SQLite item store. Empty keeps items in memory.
	DBPath string `koanf:"db_path"`

	// RetentionWindow is how far back from a group's newest click events are kept.
	RetentionWindow time.Duration `koanf:"retention_window"`

	// RankingLimit is the number of score-ordered entries before the overflow entry.
	RankingLimit int `koanf:"ranking_limit"`

	// OverflowTitle tags legacy rows whose title marks them as the overflow entry.
	OverflowTitle string `koanf:"overflow_title"`

	// RefreshInterval is the period of the background prune run. Zero disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// WorkerCount sets the number of prune workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory prune job queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the click id cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ClickRetries bounds re-reads after a version conflict on click.
	ClickRetries int `koanf:"click_retries"`

	// Directory maps viewer names to their group memberships.
	Directory map[string][]string `koanf:"directory"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9080",
		RetentionWindow: 7 * 24 * time.Hour,
		RankingLimit:    11,
		OverflowTitle:   "Övriga System",
		RefreshInterval: 24 * time.Hour,
		WorkerCount:     runtime.NumCPU(),
		QueueSize:       10_000,
		DedupeSize:      100_000,
		ClickRetries:    3,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RankingLimit <= 0:
		return fmt.Errorf("%w: ranking_limit must be positive, got %d", ErrInvalidConfig, c.RankingLimit)
	case c.RetentionWindow <= 0:
		return fmt.Errorf("%w: retention_window must be positive, got %s", ErrInvalidConfig, c.RetentionWindow)
	case c.RefreshInterval < 0:
		return fmt.Errorf("%w: refresh_interval must not be negative", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.ClickRetries < 0:
		return fmt.Errorf("%w: click_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}
