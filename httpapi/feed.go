package httpapi

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"payflow/logger"
	"payflow/stream"
)

// Feed fans mutation events out to SSE subscribers. Each subscriber gets its
// own monotonic sequence starting at an arbitrary base; a slow subscriber
// has events dropped rather than stalling the publisher, and the resulting
// gap is visible to the client through the sequence numbers.
type Feed struct {
	log       *logger.Logger
	heartbeat time.Duration

	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// Subscription is one subscriber's event channel.
type Subscription struct {
	C   chan stream.Event
	seq int64
}

const subscriberBacklog = 64

func NewFeed(heartbeat time.Duration, log *logger.Logger) *Feed {
	if log == nil {
		log = logger.Nop()
	}
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	f := &Feed{
		log:       log,
		heartbeat: heartbeat,
		subs:      make(map[*Subscription]struct{}),
		stop:      make(chan struct{}),
	}
	f.wg.Add(1)
	go f.heartbeatLoop()
	return f
}

// Subscribe registers a subscriber and queues its connected event.
func (f *Feed) Subscribe() *Subscription {
	sub := &Subscription{
		C: make(chan stream.Event, subscriberBacklog),
		// Arbitrary base: sequence numbers order events within one
		// connection only.
		seq: rand.Int63n(1_000_000),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(sub.C)
		return sub
	}
	f.subs[sub] = struct{}{}
	f.sendLocked(sub, stream.EventConnected, nil)
	return sub
}

func (f *Feed) Unsubscribe(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; ok {
		delete(f.subs, sub)
		close(sub.C)
	}
}

// Publish sends a typed payload to every subscriber.
func (f *Feed) Publish(eventType string, payload any) {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			f.log.Error("feed payload encode failed", "type", eventType, "error", err)
			return
		}
		data = encoded
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for sub := range f.subs {
		f.sendLocked(sub, eventType, data)
	}
}

func (f *Feed) sendLocked(sub *Subscription, eventType string, data json.RawMessage) {
	sub.seq++
	ev := stream.Event{
		Type:      eventType,
		Sequence:  sub.seq,
		Data:      data,
		Timestamp: time.Now(),
	}
	select {
	case sub.C <- ev:
	default:
		// Subscriber is not keeping up; the sequence still advanced, so the
		// client sees the gap.
		f.log.Warn("dropping event for slow subscriber", "type", eventType, "sequence", sub.seq)
	}
}

func (f *Feed) heartbeatLoop() {
	defer f.wg.Done()
	ticker := time.NewTicker(f.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			f.Publish(stream.EventHeartbeat, nil)
		}
	}
}

// Close stops heartbeats and closes every subscriber channel.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.stop)
	for sub := range f.subs {
		delete(f.subs, sub)
		close(sub.C)
	}
	f.mu.Unlock()
	f.wg.Wait()
}
