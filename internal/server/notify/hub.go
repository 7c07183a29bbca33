// Package notify fans committed task changes out to every connected
// subscriber. Delivery is best effort: a subscriber whose queue is full
// misses the notification, and the publisher never waits.
package notify

import (
	"context"
	"sync"

	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/metrics"
	"github.com/dominikcirko/kanban-app/internal/server/models"
	"github.com/oklog/ulid/v2"
)

const DefaultQueueSize = 64

// Subscription receives notifications on C until it is unsubscribed or the
// hub is closed, at which point C is closed.
type Subscription struct {
	ID string
	C  <-chan models.Notification

	ch chan models.Notification
}

type Hub struct {
	log       logging.Logger
	metrics   *metrics.Metrics
	queueSize int

	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
}

func NewHub(log logging.Logger, m *metrics.Metrics, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		log:       log.With("module", "notify"),
		metrics:   m,
		queueSize: queueSize,
		subs:      make(map[string]*Subscription),
	}
}

// Subscribe registers a new subscriber. On a closed hub the returned
// subscription's channel is already closed.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan models.Notification, h.queueSize)
	s := &Subscription{ID: ulid.Make().String(), C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return s
	}
	h.subs[s.ID] = s
	h.metrics.SubscriberAdded()
	return s
}

func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.ID]; !ok {
		return
	}
	delete(h.subs, s.ID)
	close(s.ch)
	h.metrics.SubscriberRemoved()
}

// Publish offers n to every subscriber without blocking.
func (h *Hub) Publish(n models.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, s := range h.subs {
		select {
		case s.ch <- n:
		default:
			h.metrics.NotificationDropped()
			h.log.Warn(context.Background(), "subscriber queue full, notification dropped",
				"subscriber", id, "type", n.Type)
		}
	}
}

// Len is the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
		h.metrics.SubscriberRemoved()
	}
}
