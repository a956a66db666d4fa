package action

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/onshopfront/embedded-go/pkg/wire"
)

// Action is a capability object that can be serialized for the host.
// Properties are positional and must already be wire-safe, except that an
// element may itself be an Action or an ordered sequence of elements.
type Action interface {
	// ActionType is the wire type tag resolved through the type table.
	ActionType() string
	// Properties returns the positional property list.
	Properties() []any
	// EventSlots returns the correlation IDs registered per event slot.
	EventSlots() map[string][]string
}

// Constructor builds an action kind from its serialized descriptor. It
// must interpret the descriptor's properties positionally, exactly as the
// kind's literal-argument constructor does.
type Constructor func(reg *Registry, d wire.Descriptor) (Action, error)

var typeTable = struct {
	mu sync.RWMutex
	m  map[string]Constructor
}{m: make(map[string]Constructor)}

// RegisterType registers a constructor for a type tag. Later
// registrations replace earlier ones.
func RegisterType(tag string, fn Constructor) {
	typeTable.mu.Lock()
	defer typeTable.mu.Unlock()
	typeTable.m[tag] = fn
}

// RegisteredTypes returns the known type tags, sorted.
func RegisteredTypes() []string {
	typeTable.mu.RLock()
	defer typeTable.mu.RUnlock()
	tags := make([]string, 0, len(typeTable.m))
	for tag := range typeTable.m {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Serialize walks the action depth-first and produces its wire
// descriptor. Nested actions become nested descriptors; sequences are
// mapped element-wise; everything else passes through unchanged.
func Serialize(a Action) wire.Descriptor {
	props := a.Properties()
	out := make([]any, len(props))
	for i, p := range props {
		out[i] = serializeProperty(p)
	}
	events := make(map[string][]string)
	for event, ids := range a.EventSlots() {
		events[event] = append([]string(nil), ids...)
	}
	return wire.Descriptor{
		Properties: out,
		Events:     events,
		Type:       a.ActionType(),
	}
}

func serializeProperty(p any) any {
	switch v := p.(type) {
	case Action:
		return Serialize(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = serializeProperty(e)
		}
		return out
	default:
		return p
	}
}

// Deserialize reconstructs an action from its descriptor using the type
// table. Reconstructing re-registers the descriptor's correlation IDs
// into reg, so registry growth is an observable side effect.
func Deserialize(reg *Registry, d wire.Descriptor) (Action, error) {
	typeTable.mu.RLock()
	ctor, ok := typeTable.m[d.Type]
	typeTable.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, d.Type)
	}
	return ctor(reg, d)
}

// AsDescriptor coerces a property value into a descriptor. It accepts
// both in-memory descriptors and the generic map shape they decode to
// after a JSON round trip.
func AsDescriptor(v any) (wire.Descriptor, bool) {
	switch d := v.(type) {
	case wire.Descriptor:
		return d, true
	case map[string]any:
		raw, err := json.Marshal(d)
		if err != nil {
			return wire.Descriptor{}, false
		}
		var out wire.Descriptor
		if err := json.Unmarshal(raw, &out); err != nil {
			return wire.Descriptor{}, false
		}
		return out, out.Type != ""
	default:
		return wire.Descriptor{}, false
	}
}
