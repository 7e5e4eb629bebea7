package httpapi

import (
	"testing"
	"time"

	"payflow/stream"
)

func TestFeed_SubscribeGetsConnectedEvent(t *testing.T) {
	f := NewFeed(time.Minute, nil)
	defer f.Close()

	sub := f.Subscribe()
	defer f.Unsubscribe(sub)

	select {
	case ev := <-sub.C:
		if ev.Type != stream.EventConnected {
			t.Errorf("expected connected event first, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("no connected event")
	}
}

func TestFeed_PublishFansOutWithMonotonicSequences(t *testing.T) {
	f := NewFeed(time.Minute, nil)
	defer f.Close()

	a := f.Subscribe()
	b := f.Subscribe()
	defer f.Unsubscribe(a)
	defer f.Unsubscribe(b)

	f.Publish(stream.EventPaymentUpdated, map[string]any{"id": "pay_1"})
	f.Publish(stream.EventPaymentUpdated, map[string]any{"id": "pay_2"})

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		var last int64 = -1
		for i := 0; i < 3; i++ { // connected + 2 publishes
			select {
			case ev := <-sub.C:
				if last >= 0 && ev.Sequence != last+1 {
					t.Errorf("subscriber %s: sequence jumped %d -> %d without drops", name, last, ev.Sequence)
				}
				last = ev.Sequence
			case <-time.After(time.Second):
				t.Fatalf("subscriber %s: missing event %d", name, i)
			}
		}
	}
}

func TestFeed_SlowSubscriberSeesGap(t *testing.T) {
	f := NewFeed(time.Minute, nil)
	defer f.Close()

	sub := f.Subscribe()
	defer f.Unsubscribe(sub)

	// Overflow the backlog without draining. The connected event occupies one
	// slot already, so 10 publishes are dropped while the sequence counter
	// keeps advancing.
	const extra = 10
	for i := 0; i < subscriberBacklog-1+extra; i++ {
		f.Publish(stream.EventPayoutUpdated, map[string]any{"n": i})
	}

	var count, prev int64
	prev = -1
drain:
	for {
		select {
		case ev := <-sub.C:
			if prev >= 0 && ev.Sequence != prev+1 {
				t.Fatalf("buffered events must be contiguous, got %d after %d", ev.Sequence, prev)
			}
			prev = ev.Sequence
			count++
		default:
			break drain
		}
	}
	if count != subscriberBacklog {
		t.Fatalf("expected exactly %d buffered events, got %d", subscriberBacklog, count)
	}

	// The next delivered event exposes the drop through its sequence number.
	f.Publish(stream.EventPayoutUpdated, map[string]any{"n": "after"})
	select {
	case ev := <-sub.C:
		if gap := ev.Sequence - prev - 1; gap != extra {
			t.Errorf("expected a gap of %d dropped events, got %d", extra, gap)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event after draining")
	}
}

func TestFeed_UnsubscribeClosesChannel(t *testing.T) {
	f := NewFeed(time.Minute, nil)
	defer f.Close()

	sub := f.Subscribe()
	f.Unsubscribe(sub)
	f.Unsubscribe(sub) // idempotent

	for {
		if _, ok := <-sub.C; !ok {
			return
		}
	}
}

func TestFeed_Heartbeats(t *testing.T) {
	f := NewFeed(10*time.Millisecond, nil)
	defer f.Close()

	sub := f.Subscribe()
	defer f.Unsubscribe(sub)

	<-sub.C // connected
	select {
	case ev := <-sub.C:
		if ev.Type != stream.EventHeartbeat {
			t.Errorf("expected heartbeat, got %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatalf("no heartbeat arrived")
	}
}

func TestFeed_CloseStopsEverything(t *testing.T) {
	f := NewFeed(time.Minute, nil)
	sub := f.Subscribe()

	f.Close()
	f.Publish(stream.EventPaymentUpdated, nil) // must not panic

	// The subscriber channel drains and closes.
	for {
		if _, ok := <-sub.C; !ok {
			break
		}
	}
	if late := f.Subscribe(); late != nil {
		if _, ok := <-late.C; ok {
			t.Errorf("a post-close subscription must be closed immediately")
		}
	}
}
