package realtime

import (
	"context"
	"sync"

	"github.com/agrilink/messaging/internal/domain"
)

// subscriptionBuffer is the per-subscription channel depth. Delivery is
// best-effort: a subscriber that falls this far behind loses events and is
// expected to reload current state from the store.
const subscriptionBuffer = 32

// Hub fans events out to live subscriptions keyed by user ID. The transport
// behind a subscription (WebSocket, test channel) is the caller's concern.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

var _ domain.EventPublisher = (*Hub)(nil)

// Subscription is one live listener for a user's events.
type Subscription struct {
	hub    *Hub
	userID string
	ch     chan domain.Event
	once   sync.Once
}

// Events returns the stream of events for this subscription. The channel is
// closed when the subscription is closed.
func (s *Subscription) Events() <-chan domain.Event { return s.ch }

// Close detaches the subscription. It changes no server state beyond the
// hub's registry and is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Subscribe registers a new listener for the given user.
func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		hub:    h,
		userID: userID,
		ch:     make(chan domain.Event, subscriptionBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[sub.userID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, sub.userID)
		}
	}
}

// Publish delivers ev to every live subscription of the given users. Slow
// subscribers are skipped rather than blocking the caller.
func (h *Hub) Publish(_ context.Context, recipientIDs []string, ev domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, uid := range recipientIDs {
		for sub := range h.subs[uid] {
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}
