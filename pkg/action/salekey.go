package action

import (
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// TypeSaleKey is the wire type tag for SaleKey.
const TypeSaleKey = "SaleKey"

// EventPress is the press event slot for sale keys.
const EventPress = "press"

// SaleKey is a sell-screen keypad key. Press listeners are persistent.
type SaleKey struct {
	Base
	label  string
	colour string
}

// NewSaleKey constructs a sale key with a label and a display colour.
func NewSaleKey(reg *Registry, label, colour string) *SaleKey {
	return &SaleKey{Base: newBase(reg), label: label, colour: colour}
}

func saleKeyFromDescriptor(reg *Registry, d wire.Descriptor) (Action, error) {
	k := NewSaleKey(reg, d.StringProperty(0), d.StringProperty(1))
	k.restore(k, d.Events)
	return k, nil
}

func init() {
	RegisterType(TypeSaleKey, saleKeyFromDescriptor)
}

// Label returns the key label.
func (k *SaleKey) Label() string { return k.label }

// Colour returns the key display colour.
func (k *SaleKey) Colour() string { return k.colour }

// OnPress attaches a press callback and returns its correlation ID.
func (k *SaleKey) OnPress(fn Callback) string {
	return k.attach(k, EventPress, fn, false)
}

// ActionType implements Action.
func (k *SaleKey) ActionType() string { return TypeSaleKey }

// Properties implements Action.
func (k *SaleKey) Properties() []any { return []any{k.label, k.colour} }
