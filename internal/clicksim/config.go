// Package clicksim drives a running service over HTTP: it seeds items,
// submits concurrent clicks for a set of viewers and checks that every
// viewer's list is ordered by the clicks it sent.
package clicksim

import (
	"fmt"
	"strings"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string              // Base URL of the service
	Items         int                 // Number of items to create
	Clicks        int                 // Number of clicks to submit
	Workers       int                 // Number of concurrent click senders
	Timeout       time.Duration       // HTTP request timeout
	DuplicateRate float64             // Share of clicks resent with a used click id
	Limit         int                 // Ranked entries the service shows before the overflow entry
	Viewers       map[string][]string // Viewer name to groups, matching the service directory
	Verbose       bool
}

// Stats holds run statistics.
type Stats struct {
	ItemsCreated    int
	ClicksSubmitted int
	ClicksRecorded  int
	ClicksDuplicate int
	ClicksFailed    int
	ListsVerified   int
	StartTime       time.Time
	Duration        time.Duration
}

// Entry mirrors one element of GET /items.
type Entry struct {
	Position int    `json:"position"`
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Overflow bool   `json:"overflow"`
}

type listResponse struct {
	Viewer string  `json:"viewer"`
	Items  []Entry `json:"items"`
}

type createRequest struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Groups   []string `json:"groups"`
	Overflow bool     `json:"overflow,omitempty"`
}

type clickRequest struct {
	Viewer  string `json:"viewer"`
	ClickID string `json:"click_id"`
}

type clickResponse struct {
	Recorded  bool `json:"recorded"`
	Duplicate bool `json:"duplicate"`
}

// ParseViewers parses "alice=Admin,User;bob=User" into a viewer map.
func ParseViewers(s string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, groups, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("viewer %q: expected name=group[,group]", part)
		}
		var gs []string
		for _, g := range strings.Split(groups, ",") {
			if g = strings.TrimSpace(g); g != "" {
				gs = append(gs, g)
			}
		}
		out[name] = gs
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no viewers in %q", s)
	}
	return out, nil
}

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("base url is empty")
	case c.Items <= 0:
		return fmt.Errorf("items must be positive")
	case c.Clicks < 0:
		return fmt.Errorf("clicks must not be negative")
	case len(c.Viewers) == 0:
		return fmt.Errorf("no viewers configured")
	case c.DuplicateRate < 0 || c.DuplicateRate >= 1:
		return fmt.Errorf("duplicate rate must be in [0,1)")
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Limit <= 0 {
		c.Limit = 11
	}
	return nil
}
