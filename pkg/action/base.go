package action

import "sync"

// Listener is one (correlation ID, event slot) pair owned by an action.
type Listener struct {
	ID    string
	Event string
}

// Base carries the listener bookkeeping shared by every action kind.
// Concrete kinds embed it; it is not an action by itself.
type Base struct {
	registry  *Registry
	mu        sync.Mutex
	listeners []Listener
}

func newBase(reg *Registry) Base {
	return Base{registry: reg}
}

// attach registers fn for an event slot under a fresh correlation ID.
func (b *Base) attach(owner Action, event string, fn Callback, oneShot bool) string {
	id := NewCorrelationID(event)
	b.registry.Add(id, owner, event, fn, oneShot)
	b.mu.Lock()
	b.listeners = append(b.listeners, Listener{ID: id, Event: event})
	b.mu.Unlock()
	return id
}

// restore re-registers correlation IDs taken from a descriptor. The
// callbacks stay on the originating side, so entries carry no function;
// the IDs are tracked so the reconstructed action can trigger them.
func (b *Base) restore(owner Action, events map[string][]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for event, ids := range events {
		for _, id := range ids {
			b.registry.Add(id, owner, event, nil, false)
			b.listeners = append(b.listeners, Listener{ID: id, Event: event})
		}
	}
}

// EventSlots groups the live correlation IDs by event slot.
func (b *Base) EventSlots() map[string][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]string)
	for _, l := range b.listeners {
		out[l.Event] = append(out[l.Event], l.ID)
	}
	return out
}

// Off removes every listener attached to the given event slot, both
// locally and from the registry.
func (b *Base) Off(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.listeners[:0]
	for _, l := range b.listeners {
		if l.Event == event {
			b.registry.Remove(l.ID)
			continue
		}
		kept = append(kept, l)
	}
	b.listeners = kept
}

// Unregister removes every listener this action owns from the registry.
func (b *Base) Unregister() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.listeners {
		b.registry.Remove(l.ID)
	}
	b.listeners = nil
}

// CorrelationIDs returns the IDs registered for one event slot, in
// registration order.
func (b *Base) CorrelationIDs(event string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, l := range b.listeners {
		if l.Event == event {
			out = append(out, l.ID)
		}
	}
	return out
}
