// Package events is an in-process publish/subscribe feed of plan status
// snapshots, for an out-of-scope UI or CLI-watch consumer. It never
// touches disk: the bus (internal/bus) is the durable, cross-process
// transport; this is purely a same-process notification fan-out.
package events

import (
	"context"
	"sync"

	"github.com/daydemir/ralphd/internal/statestore"
)

// Snapshot is one observation of a plan's status, published by the
// dispatcher for every tracked plan at the end of each Tick, after
// state.json is saved.
type Snapshot struct {
	PlanID    string
	Status    statestore.Status
	Agent     statestore.Agent
	Blocked   bool
	LastError string
	UpdatedAt string
}

// subscriberBuffer bounds how many snapshots a slow subscriber can lag
// behind before publishes start dropping for it; the dispatcher tick loop
// must never block on a subscriber that stopped reading.
const subscriberBuffer = 64

// Hub fans out Snapshots to any number of subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Snapshot]struct{})}
}

// Subscribe registers a new listener and returns its channel. The
// subscription is automatically removed when ctx is cancelled; callers
// should keep draining the channel until it is closed.
func (h *Hub) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish fans out snapshot to every current subscriber. A subscriber
// whose buffer is full is skipped for this publish rather than blocking
// the caller (the dispatcher tick loop).
func (h *Hub) Publish(snapshot Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// SubscriberCount reports how many listeners are currently registered,
// mainly for tests.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
