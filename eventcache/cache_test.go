package eventcache

import (
	"context"
	"encoding/json"
	"testing"

	"payflow/stream"
)

func entry(id, payload string) Entry {
	return Entry{ID: id, Payload: json.RawMessage(payload)}
}

func TestDedup_LastEntryWins(t *testing.T) {
	out := Dedup([]Entry{
		entry("a", `{"v":1}`),
		entry("b", `{"v":1}`),
		entry("a", `{"v":2}`),
		entry("a", `{"v":3}`),
	})

	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out[0].ID != "a" || string(out[0].Payload) != `{"v":3}` {
		t.Errorf("expected latest payload for a in first-seen position, got %s %s", out[0].ID, out[0].Payload)
	}
	if out[1].ID != "b" {
		t.Errorf("expected b second, got %s", out[1].ID)
	}
}

func TestDedup_SmallBatchesPassThrough(t *testing.T) {
	if out := Dedup(nil); len(out) != 0 {
		t.Errorf("expected empty, got %v", out)
	}
	one := []Entry{entry("a", `{}`)}
	if out := Dedup(one); len(out) != 1 || out[0].ID != "a" {
		t.Errorf("expected single entry unchanged, got %v", out)
	}
}

func TestMemory_PutGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Put(ctx, []Entry{entry("pay_1", `{"v":1}`), entry("pay_1", `{"v":2}`)}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	got, ok, err := m.Get(ctx, "pay_1")
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if string(got.Payload) != `{"v":2}` {
		t.Errorf("expected latest payload, got %s", got.Payload)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 entity, got %d", m.Len())
	}

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Errorf("expected a miss for an unknown id")
	}
}

func TestBatchSink_WritesIdentifiedEvents(t *testing.T) {
	m := NewMemory()
	sink := BatchSink(m, nil)

	sink([]stream.Event{
		{Type: stream.EventPaymentUpdated, Sequence: 1, Data: json.RawMessage(`{"id":"pay_1","status":"processing"}`)},
		{Type: stream.EventHeartbeat, Sequence: 2}, // no data, skipped
		{Type: stream.EventPaymentUpdated, Sequence: 3, Data: json.RawMessage(`{"status":"orphan"}`)}, // no id, skipped
		{Type: stream.EventPaymentUpdated, Sequence: 4, Data: json.RawMessage(`{"id":"pay_1","status":"succeeded"}`)},
	})

	if m.Len() != 1 {
		t.Fatalf("expected 1 cached entity, got %d", m.Len())
	}
	got, ok, _ := m.Get(context.Background(), "pay_1")
	if !ok {
		t.Fatalf("expected pay_1 to be cached")
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(got.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Status != "succeeded" {
		t.Errorf("expected the newest snapshot to win, got %q", payload.Status)
	}
}

func TestBatchSink_AllSkippedIsNoWrite(t *testing.T) {
	m := NewMemory()
	sink := BatchSink(m, nil)

	sink([]stream.Event{{Type: stream.EventHeartbeat, Sequence: 1}})
	if m.Len() != 0 {
		t.Errorf("expected no cache writes, got %d", m.Len())
	}
}
