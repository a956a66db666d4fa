package action

import (
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// TypeToast is the wire type tag for Toast.
const TypeToast = "Toast"

// EventHide is the hide event slot for toasts.
const EventHide = "hide"

// Toast variants understood by the host.
const (
	ToastSuccess = "success"
	ToastWarning = "warning"
	ToastError   = "error"
	ToastInfo    = "information"
)

// Toast is a transient host notification. Hide listeners are one-shot: a
// toast hides once, so the registration is dropped on first delivery.
type Toast struct {
	Base
	message string
	variant string
}

// NewToast constructs a toast with a message and variant.
func NewToast(reg *Registry, message, variant string) *Toast {
	return &Toast{Base: newBase(reg), message: message, variant: variant}
}

func toastFromDescriptor(reg *Registry, d wire.Descriptor) (Action, error) {
	t := NewToast(reg, d.StringProperty(0), d.StringProperty(1))
	t.restore(t, d.Events)
	return t, nil
}

func init() {
	RegisterType(TypeToast, toastFromDescriptor)
}

// Message returns the toast message.
func (t *Toast) Message() string { return t.message }

// Variant returns the toast variant.
func (t *Toast) Variant() string { return t.variant }

// OnHide attaches a one-shot hide callback and returns its correlation ID.
func (t *Toast) OnHide(fn Callback) string {
	return t.attach(t, EventHide, fn, true)
}

// ActionType implements Action.
func (t *Toast) ActionType() string { return TypeToast }

// Properties implements Action.
func (t *Toast) Properties() []any { return []any{t.message, t.variant} }
