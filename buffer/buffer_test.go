package buffer

import (
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]int
}

func (r *recordingSink) accept(batch []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make([]int, len(batch))
	copy(copied, batch)
	r.batches = append(r.batches, copied)
}

func (r *recordingSink) all() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func (r *recordingSink) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// frozenBuffer returns a buffer whose clock never advances, so every push
// after the priming flush throttles and nothing flushes until asked.
func frozenBuffer(sink *recordingSink, maxSize int) *Buffer[int] {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := New(sink.accept,
		WithMaxSize[int](maxSize),
		WithWindow[int](time.Hour),
		WithClock[int](func() time.Time { return fixed }),
	)
	b.Flush() // stamp lastFlush so pushes defer instead of flushing inline
	return b
}

func TestPush_DropsOldestAtCapacity(t *testing.T) {
	sink := &recordingSink{}
	b := frozenBuffer(sink, 50)
	defer b.Close()

	for i := 1; i <= 200; i++ {
		b.Push(i)
	}

	stats := b.Stats()
	if stats.Len != 50 {
		t.Fatalf("expected queue pinned at 50, got %d", stats.Len)
	}
	if stats.Dropped != 150 {
		t.Fatalf("expected 150 dropped, got %d", stats.Dropped)
	}

	b.ForceFlush()
	got := sink.all()
	if len(got) != 50 {
		t.Fatalf("expected the newest 50 entries, got %d", len(got))
	}
	for i, v := range got {
		if v != 151+i {
			t.Fatalf("entry %d = %d, want %d; oldest must be evicted first", i, v, 151+i)
		}
	}
}

func TestFlush_PreservesOrder(t *testing.T) {
	sink := &recordingSink{}
	b := frozenBuffer(sink, 100)
	defer b.Close()

	for i := 1; i <= 10; i++ {
		b.Push(i)
	}
	b.ForceFlush()

	if sink.calls() != 1 {
		t.Fatalf("expected one batch, got %d", sink.calls())
	}
	for i, v := range sink.all() {
		if v != i+1 {
			t.Errorf("batch[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestFlush_EmptyQueueSkipsSink(t *testing.T) {
	sink := &recordingSink{}
	b := frozenBuffer(sink, 10)
	defer b.Close()

	b.Flush()
	b.ForceFlush()
	if sink.calls() != 0 {
		t.Errorf("empty flushes must not invoke the sink, got %d calls", sink.calls())
	}
}

func TestPush_ThrottlesWithinWindow(t *testing.T) {
	sink := &recordingSink{}
	b := New(sink.accept, WithWindow[int](20*time.Millisecond))
	defer b.Close()

	// First push flushes immediately: a full window has passed since the
	// zero-valued last flush.
	b.Push(1)
	if sink.calls() != 1 {
		t.Fatalf("expected immediate first flush, got %d calls", sink.calls())
	}

	// Pushes inside the window coalesce into one deferred batch.
	b.Push(2)
	b.Push(3)
	if !b.Stats().Throttling {
		t.Errorf("expected buffer to report throttling")
	}

	deadline := time.Now().Add(time.Second)
	for sink.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.calls() != 2 {
		t.Fatalf("expected deferred flush to fire, got %d calls", sink.calls())
	}
	got := sink.all()
	if len(got) != 3 || got[1] != 2 || got[2] != 3 {
		t.Errorf("expected [1 2 3] across batches, got %v", got)
	}
}

func TestForceFlush_CancelsPendingTimer(t *testing.T) {
	sink := &recordingSink{}
	b := New(sink.accept, WithWindow[int](30*time.Millisecond))
	defer b.Close()

	b.Push(1) // immediate
	b.Push(2) // deferred
	b.ForceFlush()

	if sink.calls() != 2 {
		t.Fatalf("expected force flush to deliver now, got %d calls", sink.calls())
	}
	// The cancelled timer must not deliver the batch a second time.
	time.Sleep(60 * time.Millisecond)
	if sink.calls() != 2 {
		t.Errorf("cancelled timer still fired, got %d calls", sink.calls())
	}
}

func TestClose_DiscardsPendingWork(t *testing.T) {
	sink := &recordingSink{}
	b := New(sink.accept, WithWindow[int](20*time.Millisecond))

	b.Push(1) // immediate
	b.Push(2) // deferred
	b.Close()

	time.Sleep(50 * time.Millisecond)
	if sink.calls() != 1 {
		t.Errorf("close must cancel the scheduled flush, got %d calls", sink.calls())
	}

	b.Push(3)
	b.ForceFlush()
	if sink.calls() != 1 {
		t.Errorf("closed buffer must ignore pushes and flushes, got %d calls", sink.calls())
	}
}

func TestResetDroppedCount(t *testing.T) {
	sink := &recordingSink{}
	b := frozenBuffer(sink, 2)
	defer b.Close()

	for i := 0; i < 5; i++ {
		b.Push(i)
	}
	if b.Stats().Dropped != 3 {
		t.Fatalf("expected 3 dropped, got %d", b.Stats().Dropped)
	}
	b.ResetDroppedCount()
	if b.Stats().Dropped != 0 {
		t.Errorf("expected counter reset, got %d", b.Stats().Dropped)
	}
	if b.Stats().Len != 2 {
		t.Errorf("reset must not touch the queue, got len %d", b.Stats().Len)
	}
}

func TestPush_ConcurrentProducersStayBounded(t *testing.T) {
	sink := &recordingSink{}
	b := frozenBuffer(sink, 64)
	defer b.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Push(g*100 + i)
			}
		}(g)
	}
	wg.Wait()

	stats := b.Stats()
	if stats.Len != 64 {
		t.Errorf("expected queue at its bound, got %d", stats.Len)
	}
	if stats.Dropped != 800-64 {
		t.Errorf("expected %d dropped, got %d", 800-64, stats.Dropped)
	}
}
