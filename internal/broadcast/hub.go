package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const DefaultQueueSize = 64

// Subscription is one viewer's outbound queue. Messages are delivered in
// the order they were accepted.
type Subscription struct {
	ID string

	ch      chan Message
	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

// C is drained by the viewer's writer; it is closed on Unsubscribe.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Send queues msg without blocking. When the queue is full the message is
// dropped for this subscriber only and false is returned.
func (s *Subscription) Send(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Dropped counts messages discarded because the queue was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Hub fans messages out to every current subscription.
type Hub struct {
	queueSize int

	mu   sync.RWMutex
	subs map[string]*Subscription
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		queueSize: queueSize,
		subs:      make(map[string]*Subscription),
	}
}

func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID: uuid.NewString(),
		ch: make(chan Message, h.queueSize),
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub.ID)
	h.mu.Unlock()
	sub.close()
}

// Broadcast offers msg to every subscriber and returns how many accepted it.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, sub := range h.subs {
		if sub.Send(msg) {
			sent++
		}
	}
	return sent
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
