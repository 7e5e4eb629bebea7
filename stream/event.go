package stream

import (
	"encoding/json"
	"time"
)

// Event is one record on the unidirectional feed. Sequence numbers are
// per-connection monotonic integers starting at an arbitrary base; they
// exist for client-side gap detection, not global ordering.
type Event struct {
	Type      string          `json:"type"`
	Sequence  int64           `json:"sequence"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Well-known event types.
const (
	EventConnected      = "connected"
	EventHeartbeat      = "heartbeat"
	EventPaymentUpdated = "payment.updated"
	EventPayoutUpdated  = "payout.updated"
)
