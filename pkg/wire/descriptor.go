package wire

import "encoding/json"

// Descriptor is the wire-safe form of an action. Properties are ordered
// and positional: the receiving constructor interprets them exactly as
// its literal-argument constructor would. Events maps an event slot name
// to the correlation IDs registered for it; callbacks themselves never
// cross the wire.
type Descriptor struct {
	Properties []any               `json:"properties"`
	Events     map[string][]string `json:"events"`
	Type       string              `json:"type"`
}

// DecodeDescriptor parses a descriptor from raw envelope data.
func DecodeDescriptor(data json.RawMessage) (Descriptor, error) {
	var d Descriptor
	err := json.Unmarshal(data, &d)
	return d, err
}

// Property returns the positional property at i, or nil when the
// descriptor carries fewer properties. Deserializing constructors use it
// to stay tolerant of older hosts that send shorter property lists.
func (d Descriptor) Property(i int) any {
	if i < 0 || i >= len(d.Properties) {
		return nil
	}
	return d.Properties[i]
}

// StringProperty returns the positional property at i coerced to a
// string, or the empty string when absent or not a string.
func (d Descriptor) StringProperty(i int) string {
	s, _ := d.Property(i).(string)
	return s
}
