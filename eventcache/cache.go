// Package eventcache holds the latest known payload per entity, fed by
// buffered stream flushes. Within a batch, later entries for the same entity
// win, so a burst of updates to one payment costs one write.
package eventcache

import (
	"context"
	"encoding/json"
	"time"
)

// Entry is one entity snapshot carried by the stream.
type Entry struct {
	ID         string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Cache is the flush destination. Put applies a whole batch; implementations
// deduplicate by entity id.
type Cache interface {
	Put(ctx context.Context, entries []Entry) error
	Get(ctx context.Context, id string) (Entry, bool, error)
}

// Dedup collapses a batch so each id appears once, keeping the last (most
// recent) entry and preserving first-seen order of ids.
func Dedup(entries []Entry) []Entry {
	if len(entries) < 2 {
		return entries
	}
	index := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := index[e.ID]; ok {
			out[i] = e
			continue
		}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	return out
}
