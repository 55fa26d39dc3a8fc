// Package notify provides the change-notification hub shared by the store
// and the intent gate.
package notify

import "sync"

// Kind names what changed.
type Kind string

const (
	RecordAdded   Kind = "record.added"
	RecordUpdated Kind = "record.updated"
	RecordRemoved Kind = "record.removed"

	FlowOpened    Kind = "flow.opened"
	FlowDraft     Kind = "flow.draft"
	FlowCancelled Kind = "flow.cancelled"
	FlowCommitted Kind = "flow.committed"
)

// Event is published after a state change.
type Event struct {
	Kind     Kind
	RecordID string // set for record events and for edit/delete flows
	FlowID   string // set for flow events
}

// Func receives events.
type Func func(Event)

// Hub fans events out to subscribers in subscription order.
// The zero value is ready to use.
type Hub struct {
	mu   sync.Mutex
	next int
	subs []subscriber
}

type subscriber struct {
	id int
	fn Func
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (h *Hub) Subscribe(fn Func) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	h.subs = append(h.subs, subscriber{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every subscriber synchronously. Subscribers may call back
// into the publisher; the hub holds no lock while they run.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	subs := make([]subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Len returns the number of subscribers, for introspection.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
