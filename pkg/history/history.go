// Package history records produced podcasts and summarizes them for the dashboard.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Entry describes one produced mix.
type Entry struct {
	Filename     string `json:"filename"`
	Topic        string `json:"topic"`
	Duration     string `json:"duration"` // requested minutes as entered; may be non-numeric
	CreationDate string `json:"creation_date"`
	Script       string `json:"script"`
}

// NewEntry builds an entry stamped with now.
func NewEntry(filename, topic, duration, script string, now time.Time) Entry {
	return Entry{
		Filename:     filename,
		Topic:        topic,
		Duration:     duration,
		CreationDate: now.Format(time.RFC3339),
		Script:       script,
	}
}

// Store persists the history as one document, newest entry first.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Add(ctx context.Context, e Entry) error
}

// decode parses a history document. Anything unparsable counts as empty.
func decode(data []byte, source string) []Entry {
	if len(data) == 0 {
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("History: unreadable document, treating as empty", "source", source, "error", err)
		return []Entry{}
	}
	if entries == nil {
		return []Entry{}
	}
	return entries
}

func encode(entries []Entry) ([]byte, error) {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return data, nil
}

func prepend(entries []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, e)
	return append(out, entries...)
}
