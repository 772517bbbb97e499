// Package notify fans out "new cursor" events to the watchers of an owner.
package notify

import (
	"sync"

	"github.com/MKhiriev/go-delta-sync/models"
)

// subscriberBuffer is the number of events a watcher may lag behind before
// new events are dropped for it.
const subscriberBuffer = 16

// Subscription receives the events published for one owner. Events is
// closed by [Hub.Unsubscribe] and [Hub.Close].
type Subscription struct {
	id     int64
	owner  string
	Events <-chan models.WatchEvent
	events chan models.WatchEvent
}

// Hub keeps the subscriptions of every owner. Publish never blocks: a full
// subscriber buffer drops the event, and the watcher catches up through
// the next download.
type Hub struct {
	mu        sync.Mutex
	globalIDs int64
	streams   map[string]map[int64]*Subscription
	closed    bool
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]map[int64]*Subscription)}
}

// Subscribe registers a watcher of owner.
func (h *Hub) Subscribe(owner string) *Subscription {
	events := make(chan models.WatchEvent, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.globalIDs++
	s := &Subscription{id: h.globalIDs, owner: owner, Events: events, events: events}
	if h.closed {
		close(events)
		return s
	}

	if h.streams[owner] == nil {
		h.streams[owner] = make(map[int64]*Subscription)
	}
	h.streams[owner][s.id] = s
	return s
}

// Unsubscribe removes s and closes its channel. Unsubscribing twice is a
// no-op.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.streams[s.owner]
	if !ok {
		return
	}
	if _, ok = subs[s.id]; !ok {
		return
	}

	delete(subs, s.id)
	close(s.events)
	if len(subs) == 0 {
		delete(h.streams, s.owner)
	}
}

// Publish delivers ev to every watcher of owner and returns how many
// received it.
func (h *Hub) Publish(owner string, ev models.WatchEvent) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for _, s := range h.streams[owner] {
		select {
		case s.events <- ev:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of watchers of owner.
func (h *Hub) Subscribers(owner string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams[owner])
}

// Close closes every subscription. Later subscriptions are closed on
// creation.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for owner, subs := range h.streams {
		for _, s := range subs {
			close(s.events)
		}
		delete(h.streams, owner)
	}
	h.closed = true
}
