package service

import (
	"time"

	"github.com/okian/clickprio/internal/domain/model"
	"github.com/okian/clickprio/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRetentionWindow sets how far back from a group's newest click events are kept.
func WithRetentionWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithRankingLimit sets the number of score-ordered entries shown.
func WithRankingLimit(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.limit = k
		}
	}
}

// WithRefreshInterval sets the background prune period. Zero disables it.
func WithRefreshInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.refreshInterval = interval
		}
	}
}

// WithWorkerCount sets the number of prune workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending prune jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the click id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithClickRetries bounds re-reads after a version conflict.
func WithClickRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.clickRetries = n
		}
	}
}

// WithClock sets the clock used to timestamp clicks.
func WithClock(c model.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
