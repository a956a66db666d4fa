package action

import (
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// TypeButton is the wire type tag for Button.
const TypeButton = "Button"

// EventClick is the click event slot shared by button-like actions.
const EventClick = "click"

// Button is a host-rendered button. Click listeners are persistent: they
// stay registered across deliveries until the action is unregistered.
type Button struct {
	Base
	label string
	icon  string
}

// NewButton constructs a button with a label and an optional icon name.
func NewButton(reg *Registry, label, icon string) *Button {
	return &Button{Base: newBase(reg), label: label, icon: icon}
}

func buttonFromDescriptor(reg *Registry, d wire.Descriptor) (Action, error) {
	b := NewButton(reg, d.StringProperty(0), d.StringProperty(1))
	b.restore(b, d.Events)
	return b, nil
}

func init() {
	RegisterType(TypeButton, buttonFromDescriptor)
}

// Label returns the button label.
func (b *Button) Label() string { return b.label }

// Icon returns the icon name, if any.
func (b *Button) Icon() string { return b.icon }

// OnClick attaches a click callback and returns its correlation ID.
func (b *Button) OnClick(fn Callback) string {
	return b.attach(b, EventClick, fn, false)
}

// ActionType implements Action.
func (b *Button) ActionType() string { return TypeButton }

// Properties implements Action.
func (b *Button) Properties() []any { return []any{b.label, b.icon} }
