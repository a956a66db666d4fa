package action

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onshopfront/embedded-go/pkg/wire"
)

func TestSerialize_ButtonRoundTrip(t *testing.T) {
	reg := NewRegistry()
	btn := NewButton(reg, "Refund", "undo")
	id := btn.OnClick(func(context.Context, json.RawMessage) (any, error) { return nil, nil })

	d := Serialize(btn)
	require.Equal(t, TypeButton, d.Type)
	require.Equal(t, []any{"Refund", "undo"}, d.Properties)
	require.Equal(t, map[string][]string{EventClick: {id}}, d.Events)

	out, err := Deserialize(reg, d)
	require.NoError(t, err)
	got, ok := out.(*Button)
	require.True(t, ok)
	assert.Equal(t, btn.Label(), got.Label())
	assert.Equal(t, btn.Icon(), got.Icon())
	assert.Equal(t, d.Events, Serialize(got).Events)
}

func TestSerialize_DialogNestsButtons(t *testing.T) {
	reg := NewRegistry()
	ok := NewButton(reg, "OK", "")
	cancel := NewButton(reg, "Cancel", "")
	dlg := NewDialog(reg, "Confirm", "Apply the discount?", ok, cancel)
	dlg.OnClose(func(context.Context, json.RawMessage) (any, error) { return nil, nil })

	d := Serialize(dlg)
	require.Equal(t, TypeDialog, d.Type)
	seq, isSeq := d.Properties[2].([]any)
	require.True(t, isSeq)
	require.Len(t, seq, 2)
	nested, isDescriptor := seq[0].(wire.Descriptor)
	require.True(t, isDescriptor)
	require.Equal(t, TypeButton, nested.Type)
}

func TestDeserialize_DialogSurvivesJSONRoundTrip(t *testing.T) {
	reg := NewRegistry()
	okBtn := NewButton(reg, "OK", "check")
	okID := okBtn.OnClick(func(context.Context, json.RawMessage) (any, error) { return nil, nil })
	dlg := NewDialog(reg, "Confirm", "Proceed?", okBtn)

	raw, err := json.Marshal(Serialize(dlg))
	require.NoError(t, err)
	parsed, err := wire.DecodeDescriptor(raw)
	require.NoError(t, err)

	out, err := Deserialize(reg, parsed)
	require.NoError(t, err)
	got, ok := out.(*Dialog)
	require.True(t, ok)
	require.Equal(t, "Confirm", got.Title())
	require.Equal(t, "Proceed?", got.Content())
	require.Len(t, got.Buttons(), 1)
	assert.Equal(t, "OK", got.Buttons()[0].Label())
	assert.Equal(t, []string{okID}, got.Buttons()[0].CorrelationIDs(EventClick))
}

func TestRoundTrip_AllRegisteredTypes(t *testing.T) {
	reg := NewRegistry()
	actions := []Action{
		NewButton(reg, "A", "icon-a"),
		NewToast(reg, "Saved", ToastSuccess),
		NewSaleKey(reg, "Gift Card", "#ff9900"),
		NewCustomerListOption(reg, "Loyalty lookup", "https://app.example.com/loyalty"),
		NewDialog(reg, "T", "C"),
	}

	for _, a := range actions {
		d := Serialize(a)
		out, err := Deserialize(reg, d)
		require.NoError(t, err, d.Type)
		require.Equal(t, d.Properties, Serialize(out).Properties, d.Type)
		require.Equal(t, d.Type, out.ActionType())
	}
}

func TestDeserialize_UnknownTypeFails(t *testing.T) {
	reg := NewRegistry()
	_, err := Deserialize(reg, wire.Descriptor{Type: "Hologram"})
	require.ErrorIs(t, err, ErrUnknownActionType)
}

func TestDeserialize_RegistersDescriptorIDs(t *testing.T) {
	source := NewRegistry()
	btn := NewButton(source, "A", "")
	btn.OnClick(func(context.Context, json.RawMessage) (any, error) { return nil, nil })
	d := Serialize(btn)

	target := NewRegistry()
	require.Zero(t, target.Len())
	_, err := Deserialize(target, d)
	require.NoError(t, err)
	require.Equal(t, 1, target.Len())
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	btn := NewButton(reg, "A", "")
	id := btn.OnClick(func(context.Context, json.RawMessage) (any, error) { return nil, nil })
	require.Equal(t, 1, reg.Len())

	reg.Remove(id)
	require.Zero(t, reg.Len())
	reg.Remove(id)
	reg.Remove("never-added")
	require.Zero(t, reg.Len())
}

func TestRegistry_FireUnknownIDIsSilent(t *testing.T) {
	reg := NewRegistry()
	result, handled, err := reg.Fire(context.Background(), "stale-id", nil)
	require.NoError(t, err)
	require.False(t, handled)
	require.Nil(t, result)
}

func TestRegistry_FireDeliversPayload(t *testing.T) {
	reg := NewRegistry()
	btn := NewButton(reg, "A", "")
	var seen json.RawMessage
	id := btn.OnClick(func(_ context.Context, data json.RawMessage) (any, error) {
		seen = data
		return "done", nil
	})

	result, handled, err := reg.Fire(context.Background(), id, json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	require.True(t, handled)
	require.Equal(t, "done", result)
	require.JSONEq(t, `{"x":1}`, string(seen))

	// Click listeners are persistent.
	_, handled, err = reg.Fire(context.Background(), id, nil)
	require.NoError(t, err)
	require.True(t, handled)
}

func TestRegistry_OneShotListenersDropAfterFirstDelivery(t *testing.T) {
	reg := NewRegistry()
	toast := NewToast(reg, "Saved", ToastSuccess)
	calls := 0
	id := toast.OnHide(func(context.Context, json.RawMessage) (any, error) {
		calls++
		return nil, nil
	})

	_, handled, err := reg.Fire(context.Background(), id, nil)
	require.NoError(t, err)
	require.True(t, handled)

	_, handled, err = reg.Fire(context.Background(), id, nil)
	require.NoError(t, err)
	require.False(t, handled)
	require.Equal(t, 1, calls)
	require.Zero(t, reg.Len())
}

func TestRegistry_ClearEvictsEverything(t *testing.T) {
	reg := NewRegistry()
	NewButton(reg, "A", "").OnClick(func(context.Context, json.RawMessage) (any, error) { return nil, nil })
	NewToast(reg, "B", ToastInfo).OnHide(func(context.Context, json.RawMessage) (any, error) { return nil, nil })
	require.Equal(t, 2, reg.Len())

	reg.Clear()
	require.Zero(t, reg.Len())
}

func TestUnregister_RemovesNestedButtonListeners(t *testing.T) {
	reg := NewRegistry()
	okBtn := NewButton(reg, "OK", "")
	okBtn.OnClick(func(context.Context, json.RawMessage) (any, error) { return nil, nil })
	dlg := NewDialog(reg, "T", "C", okBtn)
	dlg.OnClose(func(context.Context, json.RawMessage) (any, error) { return nil, nil })
	require.Equal(t, 2, reg.Len())

	dlg.Unregister()
	require.Zero(t, reg.Len())
}

func TestNewCorrelationID_PairwiseDistinct(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewCorrelationID(EventClick)
		_, dup := seen[id]
		require.False(t, dup, "duplicate correlation id %q", id)
		seen[id] = struct{}{}
	}
}
