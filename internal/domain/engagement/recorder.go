// Package engagement appends click events to ledgers.
package engagement

import (
	"github.com/okian/clickprio/internal/domain/model"
)

// Option applies a configuration option to the Recorder.
type Option func(*Recorder)

// WithClock sets the time source. A nil clock is ignored.
func WithClock(c model.Clock) Option {
	return func(r *Recorder) {
		if c != nil {
			r.clock = c
		}
	}
}

// Recorder is the only component that grows a ledger.
type Recorder struct {
	clock model.Clock
}

// NewRecorder creates a recorder reading the system clock.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{clock: model.SystemClock{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record returns a copy of l with one event appended to each of the viewer's
// groups. All events appended by one call share the same timestamp.
func (r *Recorder) Record(l model.Ledger, v model.Viewer) model.Ledger {
	out := l.Clone()
	groups := v.UniqueGroups()
	if len(groups) == 0 {
		return out
	}
	e := model.Event{Timestamp: r.clock.Now()}
	for _, g := range groups {
		out[g] = append(out[g], e)
	}
	return out
}
