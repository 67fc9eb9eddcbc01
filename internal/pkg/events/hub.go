package events

import (
	"sync"
	"time"
)

// Type names an event published to the UI shell.
type Type string

const (
	TypePendingCountChanged Type = "pending_count_changed"
	TypeSyncCompleted       Type = "sync_completed"
	TypeNotification        Type = "notification"
	TypeConnectivity        Type = "connectivity"
)

// Event is one message on the agent's event stream.
type Event struct {
	Type Type        `json:"type"`
	Data interface{} `json:"data,omitempty"`
	At   time.Time   `json:"at"`
}

// Hub fans events out to every subscriber. The agent serves a single local
// user, so there is no per-user routing.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a subscriber and returns the event channel and a
// cleanup function.
func (h *Hub) Subscribe() (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	h.subscribers[ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers. Slow subscribers are skipped
// rather than blocking the publisher.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
