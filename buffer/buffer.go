// Package buffer provides a bounded, lossy event buffer with a throttled
// flush. It trades completeness for liveness: under load the oldest entries
// are dropped and counted, so memory and downstream work stay bounded
// without ever blocking the producer.
package buffer

import (
	"sync"
	"time"

	"payflow/logger"
)

// DefaultMaxSize bounds the queue when WithMaxSize is not given.
const DefaultMaxSize = 500

// DefaultWindow caps flush frequency at roughly sixty per second.
const DefaultWindow = 16 * time.Millisecond

// Buffer ingests a high-frequency stream and emits ordered batches to its
// sink at a capped rate. Instances are independent and share nothing.
type Buffer[T any] struct {
	sink    func([]T)
	maxSize int
	window  time.Duration
	now     func() time.Time
	log     *logger.Logger

	mu         sync.Mutex
	queue      []T
	dropped    int64
	lastFlush  time.Time
	timer      *time.Timer
	throttling bool
	closed     bool

	// flushMu serializes sink invocations so batch N is always delivered
	// before batch N+1.
	flushMu sync.Mutex
}

type Option[T any] func(*Buffer[T])

func WithMaxSize[T any](n int) Option[T] {
	return func(b *Buffer[T]) { b.maxSize = n }
}

func WithWindow[T any](d time.Duration) Option[T] {
	return func(b *Buffer[T]) { b.window = d }
}

func WithClock[T any](now func() time.Time) Option[T] {
	return func(b *Buffer[T]) { b.now = now }
}

func WithLogger[T any](log *logger.Logger) Option[T] {
	return func(b *Buffer[T]) { b.log = log }
}

func New[T any](sink func([]T), opts ...Option[T]) *Buffer[T] {
	b := &Buffer[T]{
		sink:    sink,
		maxSize: DefaultMaxSize,
		window:  DefaultWindow,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxSize <= 0 {
		b.maxSize = DefaultMaxSize
	}
	return b
}

// Push appends item, evicting exactly one oldest entry first when the queue
// is full, so the bound holds at every instant. It then schedules a flush:
// immediately when a full window has passed since the last one, deferred to
// the window boundary otherwise.
func (b *Buffer[T]) Push(item T) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}

	if len(b.queue) >= b.maxSize {
		b.queue = b.queue[1:]
		b.dropped++
		if b.dropped%1000 == 1 {
			b.log.Warn("buffer overflow, dropping oldest", "dropped_total", b.dropped)
		}
	}
	b.queue = append(b.queue, item)

	if b.throttling {
		// A flush is already scheduled; this item rides along.
		b.mu.Unlock()
		return
	}

	delay := b.window - b.now().Sub(b.lastFlush)
	if delay <= 0 {
		b.mu.Unlock()
		b.Flush()
		return
	}

	b.throttling = true
	b.timer = time.AfterFunc(delay, func() {
		b.Flush()
	})
	b.mu.Unlock()
}

// Flush atomically swaps the queue for an empty one and hands the swapped
// batch, oldest first, to the sink in a single call. Empty queue is a no-op.
func (b *Buffer[T]) Flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.cancelTimerLocked()
	batch := b.queue
	b.queue = nil
	b.lastFlush = b.now()
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	b.sink(batch)
}

// ForceFlush cancels any pending scheduled flush and flushes now, for
// latency-sensitive items that must not wait out the throttle window.
func (b *Buffer[T]) ForceFlush() {
	b.Flush()
}

// ResetDroppedCount zeroes the drop counter without touching the queue.
// Operator action only; the counter never resets on its own.
func (b *Buffer[T]) ResetDroppedCount() {
	b.mu.Lock()
	b.dropped = 0
	b.mu.Unlock()
}

// Stats is an observable snapshot of buffer state.
type Stats struct {
	Len        int
	Dropped    int64
	LastFlush  time.Time
	Throttling bool
}

func (b *Buffer[T]) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Len:        len(b.queue),
		Dropped:    b.dropped,
		LastFlush:  b.lastFlush,
		Throttling: b.throttling,
	}
}

// Close cancels any pending scheduled flush and stops accepting pushes.
// Already-buffered data is not flushed implicitly; callers wanting a final
// drain call ForceFlush first.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cancelTimerLocked()
}

func (b *Buffer[T]) cancelTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.throttling = false
}
