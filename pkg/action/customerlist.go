package action

import (
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// TypeCustomerListOption is the wire type tag for CustomerListOption.
const TypeCustomerListOption = "CustomerListOption"

// EventSelect is the select event slot for customer list options.
const EventSelect = "select"

// CustomerListOption is an entry injected into the host's customer list.
// Select listeners are one-shot: choosing an option dismisses the list,
// so the registration is dropped on first delivery.
type CustomerListOption struct {
	Base
	label string
	url   string
}

// NewCustomerListOption constructs an option with a label and the URL the
// host opens when it is chosen.
func NewCustomerListOption(reg *Registry, label, url string) *CustomerListOption {
	return &CustomerListOption{Base: newBase(reg), label: label, url: url}
}

func customerListOptionFromDescriptor(reg *Registry, d wire.Descriptor) (Action, error) {
	o := NewCustomerListOption(reg, d.StringProperty(0), d.StringProperty(1))
	o.restore(o, d.Events)
	return o, nil
}

func init() {
	RegisterType(TypeCustomerListOption, customerListOptionFromDescriptor)
}

// Label returns the option label.
func (o *CustomerListOption) Label() string { return o.label }

// URL returns the option target URL.
func (o *CustomerListOption) URL() string { return o.url }

// OnSelect attaches a one-shot select callback and returns its
// correlation ID.
func (o *CustomerListOption) OnSelect(fn Callback) string {
	return o.attach(o, EventSelect, fn, true)
}

// ActionType implements Action.
func (o *CustomerListOption) ActionType() string { return TypeCustomerListOption }

// Properties implements Action.
func (o *CustomerListOption) Properties() []any { return []any{o.label, o.url} }
