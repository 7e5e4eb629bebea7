package stream

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"payflow/logger"
)

// State is the connection lifecycle of a Manager.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

// ErrMalformedEvent is returned by a Conn.Read that could not parse a
// message. The manager logs and skips it; connection state is untouched.
var ErrMalformedEvent = errors.New("stream: malformed event")

// Transport dials the underlying feed.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// Conn is one live subscription. Read blocks until the next event, a
// malformed frame (ErrMalformedEvent), or a terminal transport error.
type Conn interface {
	Read() (Event, error)
	Close() error
}

const (
	DefaultMaxReconnectAttempts = 10
	DefaultBaseDelay            = time.Second
	DefaultMaxDelay             = 30 * time.Second
)

// Manager keeps one subscription alive: it reconnects with exponential
// backoff and jitter, detects sequence gaps, and reports liveness. One
// manager feeds one consumer; instances share nothing.
type Manager struct {
	transport   Transport
	log         *logger.Logger
	onEvent     func(Event)
	onState     func(State)
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	mu          sync.Mutex
	state       State
	attempts    int
	lastSeq     *int64
	missed      int64
	lastEventAt time.Time
	lastErr     error
	conn        Conn
	closed      bool
	running     bool
	wake        chan struct{}
	done        chan struct{}
	wg          sync.WaitGroup
}

type ManagerOption func(*Manager)

func WithMaxReconnectAttempts(n int) ManagerOption {
	return func(m *Manager) { m.maxAttempts = n }
}

func WithBackoff(base, max time.Duration) ManagerOption {
	return func(m *Manager) { m.baseDelay, m.maxDelay = base, max }
}

func WithEventHandler(fn func(Event)) ManagerOption {
	return func(m *Manager) { m.onEvent = fn }
}

func WithStateHandler(fn func(State)) ManagerOption {
	return func(m *Manager) { m.onState = fn }
}

func WithManagerLogger(log *logger.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

func NewManager(transport Transport, opts ...ManagerOption) *Manager {
	m := &Manager{
		transport:   transport,
		log:         logger.Nop(),
		maxAttempts: DefaultMaxReconnectAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		state:       StateDisconnected,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins connecting in the background. Calling Start on a running or
// closed manager is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startLocked()
}

func (m *Manager) startLocked() {
	if m.running || m.closed {
		return
	}
	m.running = true
	m.wg.Add(1)
	go m.run()
}

func (m *Manager) run() {
	defer m.wg.Done()
	for {
		if m.isClosed() {
			return
		}
		m.setState(StateConnecting)
		conn, err := m.transport.Dial(context.Background())
		if err != nil {
			m.recordError(err)
			if !m.waitRetry() {
				return
			}
			continue
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			conn.Close()
			return
		}
		m.conn = conn
		m.attempts = 0
		m.lastErr = nil
		// A manual reconnect that raced a winning dial may have left a wake
		// token behind; drop it so a later disconnect still backs off.
		select {
		case <-m.wake:
		default:
		}
		m.mu.Unlock()
		m.setState(StateConnected)

		readErr := m.readLoop(conn)
		conn.Close()
		m.mu.Lock()
		m.conn = nil
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return
		}
		m.recordError(readErr)
		m.setState(StateDisconnected)
		if !m.waitRetry() {
			return
		}
	}
}

func (m *Manager) readLoop(conn Conn) error {
	for {
		ev, err := conn.Read()
		if err != nil {
			if errors.Is(err, ErrMalformedEvent) {
				// Skipped; the connection stays up.
				m.log.Warn("skipping malformed stream event", "error", err)
				continue
			}
			return err
		}
		m.handleEvent(ev)
	}
}

func (m *Manager) handleEvent(ev Event) {
	m.mu.Lock()
	if m.lastSeq != nil && ev.Sequence > *m.lastSeq+1 {
		gap := ev.Sequence - *m.lastSeq - 1
		m.missed += gap
		m.log.Warn("sequence gap detected",
			"expected", *m.lastSeq+1, "got", ev.Sequence, "missed_total", m.missed)
	}
	// Unconditional, even on a gap, so the same gap is never re-counted.
	seq := ev.Sequence
	m.lastSeq = &seq
	m.lastEventAt = time.Now()
	handler := m.onEvent
	m.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
}

// waitRetry sleeps out the backoff delay for the next attempt. It returns
// false when the manager gave up (attempt budget spent) or was closed.
func (m *Manager) waitRetry() bool {
	// A manual reconnect pending at this point skips both the delay and the
	// attempt counter.
	select {
	case <-m.wake:
		return !m.isClosed()
	default:
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if m.attempts >= m.maxAttempts {
		m.running = false
		m.mu.Unlock()
		m.setState(StateError)
		m.log.Error("reconnect attempts exhausted", "attempts", m.maxAttempts)
		return false
	}
	m.attempts++
	attempt := m.attempts
	m.mu.Unlock()

	delay := m.backoffDelay(attempt)
	m.log.Info("scheduling reconnect", "attempt", attempt, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-m.wake:
		// Manual reconnect: skip the remaining delay.
		return !m.isClosed()
	case <-m.done:
		return false
	}
}

// backoffDelay is base*2^(attempt-1) plus up to one base of jitter, capped.
// The jitter spreads reconnections so a recovering server is not hit by a
// synchronized storm.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	delay := m.baseDelay << uint(attempt-1)
	if delay <= 0 || delay > m.maxDelay {
		return m.maxDelay
	}
	delay += time.Duration(rand.Int63n(int64(m.baseDelay)))
	if delay > m.maxDelay {
		return m.maxDelay
	}
	return delay
}

// Reconnect resets the attempt counter, missed-event count, and sequence
// tracking, then attempts connection immediately regardless of state.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	m.missed = 0
	m.lastSeq = nil
	conn := m.conn
	m.conn = nil
	m.startLocked()
	m.mu.Unlock()

	// Wake a backoff wait, then drop the live connection (if any) so the
	// run loop re-dials without delay.
	select {
	case m.wake <- struct{}{}:
	default:
	}
	if conn != nil {
		conn.Close()
	}
}

// Close tears the subscription down synchronously: the transport is closed,
// any pending reconnect timer is abandoned, and no handler fires after
// Close returns.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	m.conn = nil
	close(m.done)
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.wg.Wait()
}

// Stats is an observable snapshot of connection health.
type Stats struct {
	State             State
	ReconnectAttempts int
	LastSequence      *int64 // nil until the first event arrives
	MissedEvents      int64
	LastEventAt       time.Time
	LastError         error
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var seq *int64
	if m.lastSeq != nil {
		v := *m.lastSeq
		seq = &v
	}
	return Stats{
		State:             m.state,
		ReconnectAttempts: m.attempts,
		LastSequence:      seq,
		MissedEvents:      m.missed,
		LastEventAt:       m.lastEventAt,
		LastError:         m.lastErr,
	}
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.state = s
	handler := m.onState
	m.mu.Unlock()
	if handler != nil {
		handler(s)
	}
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
