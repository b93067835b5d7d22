// Package signal broadcasts bridge lifecycle events to the rest of the
// application (the shell UI subscribes through the control API).
package signal

import "sync"

// Event types published by the bridge.
const (
	EventConnected       = "connected"
	EventDisconnected    = "disconnected"
	EventApprovalPending = "approval.pending"
	EventApprovalClosed  = "approval.closed"
)

// Envelope wraps a published event with its type tag.
type Envelope struct {
	Type  string `json:"type"`
	Event any    `json:"event,omitempty"`
}

// Hub fans published envelopes out to all current subscribers. Publish
// never blocks: a subscriber that is not draining its channel misses
// envelopes rather than stalling the bridge.
type Hub struct {
	mu   sync.Mutex
	subs map[int]chan Envelope
	next int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Envelope)}
}

// Subscribe registers a new subscriber. The returned cancel func detaches
// the subscriber and closes its channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Envelope, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan Envelope, 16)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish sends an envelope to every subscriber.
func (h *Hub) Publish(eventType string, event any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- Envelope{Type: eventType, Event: event}:
		default:
		}
	}
}
