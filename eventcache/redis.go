package eventcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "payflow:entity:"

// Redis is the go-redis backed Cache. A whole flush batch goes out as one
// pipeline round trip.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

type storedEntry struct {
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"receivedAt"`
}

func (r *Redis) Put(ctx context.Context, entries []Entry) error {
	deduped := Dedup(entries)
	pipe := r.client.Pipeline()
	for _, e := range deduped {
		data, err := json.Marshal(storedEntry{Payload: e.Payload, ReceivedAt: e.ReceivedAt})
		if err != nil {
			return fmt.Errorf("eventcache: encode entry %s: %w", e.ID, err)
		}
		pipe.Set(ctx, keyPrefix+e.ID, data, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("eventcache: write batch: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (Entry, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("eventcache: read %s: %w", id, err)
	}
	var stored storedEntry
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return Entry{}, false, fmt.Errorf("eventcache: decode %s: %w", id, err)
	}
	return Entry{ID: id, Payload: stored.Payload, ReceivedAt: stored.ReceivedAt}, true, nil
}
