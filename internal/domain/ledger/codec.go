// Package ledger encodes and decodes the per-item click ledger stored in the
// item's ClickCounts field.
//
// Wire format: a JSON object mapping group name to an array of
// {"timestamp": "<ISO-8601>"} objects.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/clickprio/internal/domain/model"
)

type wireEvent struct {
	Timestamp string `json:"timestamp"`
}

// Decode parses raw into a Ledger. It never fails: malformed or empty input
// yields an empty Ledger.
func Decode(raw string) model.Ledger {
	l, err := DecodeStrict(raw)
	if err != nil {
		return model.Ledger{}
	}
	return l
}

// DecodeStrict is Decode that reports malformed input as ErrDecode.
// Empty and "null" input decode to an empty Ledger without error.
//
// Group values that are not arrays are skipped. Events whose timestamp does
// not parse are kept with a zero time so pruning can discard them.
func DecodeStrict(raw string) (model.Ledger, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return model.Ledger{}, nil
	}

	var groups map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		return model.Ledger{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	out := make(model.Ledger, len(groups))
	for group, msg := range groups {
		if !bytes.HasPrefix(bytes.TrimSpace(msg), []byte("[")) {
			continue
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(msg, &entries); err != nil {
			continue
		}
		events := make([]model.Event, 0, len(entries))
		for _, e := range entries {
			events = append(events, model.Event{Timestamp: parseEntry(e)})
		}
		out[group] = events
	}
	return out, nil
}

func parseEntry(msg json.RawMessage) time.Time {
	var we wireEvent
	if err := json.Unmarshal(msg, &we); err != nil {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(we.Timestamp))
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

// Encode serializes l. Groups with no events are kept as empty arrays.
// Zero timestamps are written as empty strings, which decode back to zero.
func Encode(l model.Ledger) (string, error) {
	wire := make(map[string][]wireEvent, len(l))
	for group, events := range l {
		entries := make([]wireEvent, 0, len(events))
		for _, e := range events {
			entries = append(entries, wireEvent{Timestamp: formatTimestamp(e.Timestamp)})
		}
		wire[group] = entries
	}
	b, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encode ledger: %w", err)
	}
	return string(b), nil
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339Nano)
}
