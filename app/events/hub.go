package events

import (
	"sync"
)

const subscriberBuffer = 16

// Event is a broadcast notification with an optional JSON-serializable payload.
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// Hub fans events out to subscribers. Delivery is best-effort: a subscriber
// that stops draining its channel loses events instead of blocking publishers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int64]chan Event
	nextID      int64
}

// NewHub creates a new event hub
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[int64]chan Event),
	}
}

// Subscribe registers a new subscriber and returns its channel and id.
func (h *Hub) Subscribe() (int64, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan Event, subscriberBuffer)
	h.subscribers[id] = ch

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

// Publish delivers an event to every subscriber without blocking.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
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
