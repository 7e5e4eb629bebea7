package eventcache

import (
	"context"
	"encoding/json"
	"time"

	"payflow/logger"
	"payflow/stream"
)

// BatchSink adapts a Cache to the buffer's sink signature: each flushed
// batch of stream events becomes one deduplicated cache write. Events whose
// data carries no entity id are skipped.
func BatchSink(cache Cache, log *logger.Logger) func([]stream.Event) {
	if log == nil {
		log = logger.Nop()
	}
	return func(events []stream.Event) {
		entries := make([]Entry, 0, len(events))
		now := time.Now()
		for _, ev := range events {
			var envelope struct {
				ID string `json:"id"`
			}
			if len(ev.Data) == 0 || json.Unmarshal(ev.Data, &envelope) != nil || envelope.ID == "" {
				continue
			}
			entries = append(entries, Entry{ID: envelope.ID, Payload: ev.Data, ReceivedAt: now})
		}
		if len(entries) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cache.Put(ctx, entries); err != nil {
			log.Error("event cache write failed", "entries", len(entries), "error", err)
		}
	}
}
