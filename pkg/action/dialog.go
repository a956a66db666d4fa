package action

import (
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// TypeDialog is the wire type tag for Dialog.
const TypeDialog = "Dialog"

// EventClose is the close event slot for dialogs.
const EventClose = "close"

// Dialog is a host-rendered modal carrying nested buttons. Close
// listeners are persistent: a dialog can be shown and closed repeatedly.
type Dialog struct {
	Base
	title   string
	content string
	buttons []*Button
}

// NewDialog constructs a dialog with a title, body content, and buttons.
func NewDialog(reg *Registry, title, content string, buttons ...*Button) *Dialog {
	return &Dialog{Base: newBase(reg), title: title, content: content, buttons: buttons}
}

func dialogFromDescriptor(reg *Registry, d wire.Descriptor) (Action, error) {
	var buttons []*Button
	if seq, ok := d.Property(2).([]any); ok {
		for _, el := range seq {
			nested, ok := AsDescriptor(el)
			if !ok {
				continue
			}
			a, err := Deserialize(reg, nested)
			if err != nil {
				return nil, err
			}
			if b, ok := a.(*Button); ok {
				buttons = append(buttons, b)
			}
		}
	}
	dlg := NewDialog(reg, d.StringProperty(0), d.StringProperty(1), buttons...)
	dlg.restore(dlg, d.Events)
	return dlg, nil
}

func init() {
	RegisterType(TypeDialog, dialogFromDescriptor)
}

// Title returns the dialog title.
func (d *Dialog) Title() string { return d.title }

// Content returns the dialog body content.
func (d *Dialog) Content() string { return d.content }

// Buttons returns the nested buttons in order.
func (d *Dialog) Buttons() []*Button { return d.buttons }

// OnClose attaches a close callback and returns its correlation ID.
func (d *Dialog) OnClose(fn Callback) string {
	return d.attach(d, EventClose, fn, false)
}

// Unregister removes the dialog's listeners and those of every nested
// button.
func (d *Dialog) Unregister() {
	for _, b := range d.buttons {
		b.Unregister()
	}
	d.Base.Unregister()
}

// ActionType implements Action.
func (d *Dialog) ActionType() string { return TypeDialog }

// Properties implements Action.
func (d *Dialog) Properties() []any {
	seq := make([]any, len(d.buttons))
	for i, b := range d.buttons {
		seq[i] = b
	}
	return []any{d.title, d.content, seq}
}
