// Package action provides the serializable capability objects (buttons,
// toasts, dialogs, sale keys) exchanged with the host, the callback
// registry that resolves inbound callback events, and the serialization
// protocol that turns an action graph into a wire-safe descriptor.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Callback handles one callback event delivery for an action.
type Callback func(ctx context.Context, data json.RawMessage) (any, error)

type registration struct {
	owner   Action
	event   string
	fn      Callback
	oneShot bool
}

// Registry maps live correlation IDs to their owning actions. One
// registry is owned by each application instance; there is no process
// global, so separate instances cannot leak callbacks into each other.
type Registry struct {
	mu      sync.Mutex
	entries map[string]registration
}

// NewRegistry creates an empty callback registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// Add registers a correlation ID for the given owner and event slot. The
// callback may be nil for actions reconstructed from a descriptor, where
// the ID is tracked but delivery happens on the originating side.
func (r *Registry) Add(id string, owner Action, event string, fn Callback, oneShot bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = registration{owner: owner, event: event, fn: fn, oneShot: oneShot}
}

// Remove deletes a correlation ID. Removing an unknown ID is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Fire delivers a callback event to the registered callback. An unknown
// ID is an expected race (the owning action may already be torn down) and
// reports handled=false with no error. One-shot registrations are removed
// before the callback runs.
func (r *Registry) Fire(ctx context.Context, id string, data json.RawMessage) (result any, handled bool, err error) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok || entry.fn == nil {
		r.mu.Unlock()
		return nil, false, nil
	}
	if entry.oneShot {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	result, err = entry.fn(ctx, data)
	if err != nil {
		return nil, true, fmt.Errorf("callback for %q: %w", entry.event, err)
	}
	return result, true, nil
}

// Len returns the number of live registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Clear evicts every registration. Used on teardown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]registration)
}

// NewCorrelationID generates a globally unique correlation ID for an
// event slot: a time component, a random component, and the event name.
func NewCorrelationID(event string) string {
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixNano(), uuid.NewString(), event)
}
