package events

import (
	"sync"

	"scrape-stream-go/pkg/models"
)

// Hub fans session events out to any number of subscribers. Publishing
// never blocks: a subscriber whose buffer is full is treated as slow or
// disconnected and its stream is closed instead of stalling the crawl.
// There is no replay buffer; late subscribers see only what is
// published after they subscribe.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	bufSize int
}

// Subscription is one subscriber's live event stream. Receive from C
// until it is closed.
type Subscription struct {
	C chan models.Event

	hub     *Hub
	session string
	once    sync.Once
}

// NewHub creates a hub whose subscribers each get a buffer of bufSize
// pending events.
func NewHub(bufSize int) *Hub {
	if bufSize < 1 {
		bufSize = 64
	}
	return &Hub{
		subs:    make(map[*Subscription]struct{}),
		bufSize: bufSize,
	}
}

// Subscribe registers a new subscriber. A non-empty session restricts
// the stream to that session's events; an empty session receives
// everything.
func (h *Hub) Subscribe(session string) *Subscription {
	sub := &Subscription{
		C:       make(chan models.Event, h.bufSize),
		hub:     h,
		session: session,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Close detaches the subscription from the hub and closes its channel.
// Safe to call more than once and safe to race with Publish.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	s.detachLocked()
	s.hub.mu.Unlock()
}

// detachLocked removes the subscription and closes its channel. Caller
// holds the hub mutex, which is what makes the close race-free against
// concurrent publishes.
func (s *Subscription) detachLocked() {
	if _, ok := s.hub.subs[s]; !ok {
		return
	}
	delete(s.hub.subs, s)
	s.once.Do(func() { close(s.C) })
}

// Publish delivers ev to every current subscriber interested in its
// session. Delivery is a non-blocking buffered send, so no lock is ever
// held across an operation that could stall.
func (h *Hub) Publish(ev models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		if sub.session != "" && sub.session != ev.Session {
			continue
		}
		select {
		case sub.C <- ev:
		default:
			// Slow consumer: drop the subscriber, never the crawl.
			sub.detachLocked()
		}
	}
}

// SubscriberCount reports the number of attached subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
