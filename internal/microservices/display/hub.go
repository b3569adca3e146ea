package display

import (
	"sync"
	"sync/atomic"

	"restaurant-fulfillment/internal/notify"
)

const defaultBuffer = 32

// Hub fans events out to the display sessions of each restaurant. Sends
// never block: a subscriber whose buffer is full misses the event and is
// expected to refetch.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscriber]struct{}
	buffer int
}

type Subscriber struct {
	restaurantID string
	ch           chan notify.Envelope
	dropped      atomic.Int64
}

func (s *Subscriber) Events() <-chan notify.Envelope { return s.ch }

// Dropped is the number of events this subscriber missed.
func (s *Subscriber) Dropped() int64 { return s.dropped.Load() }

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: map[string]map[*Subscriber]struct{}{}, buffer: buffer}
}

func (h *Hub) Subscribe(restaurantID string) *Subscriber {
	s := &Subscriber{restaurantID: restaurantID, ch: make(chan notify.Envelope, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[restaurantID]
	if !ok {
		set = map[*Subscriber]struct{}{}
		h.subs[restaurantID] = set
	}
	set[s] = struct{}{}
	return s
}

func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[s.restaurantID]
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.restaurantID)
	}
	close(s.ch)
}

// Broadcast returns how many subscribers received env.
func (h *Hub) Broadcast(env notify.Envelope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for s := range h.subs[env.RestaurantID] {
		select {
		case s.ch <- env:
			delivered++
		default:
			s.dropped.Add(1)
		}
	}
	return delivered
}

func (h *Hub) Count(restaurantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[restaurantID])
}
