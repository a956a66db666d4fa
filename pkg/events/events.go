// Package events is the typed event layer: one wrapper per host event
// kind, carrying that kind's callback signature and validating what the
// callback returns before it goes back on the wire. The set of kinds is
// closed; adding a kind means adding a constructor here, not editing a
// shared switch.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/onshopfront/embedded-go/pkg/action"
	"github.com/onshopfront/embedded-go/pkg/sale"
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// ValidationError reports that a callback returned a value that does not
// match the event's wire contract.
type ValidationError struct {
	Event  wire.Event
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s callback result: %s", e.Event, e.Reason)
}

// Listener wraps one registered callback for one host event kind.
// Construct listeners through the per-kind constructors; the zero value
// is not usable.
type Listener struct {
	event wire.Event
	emit  func(ctx context.Context, data json.RawMessage) (any, error)
}

// Event returns the host event this listener is registered for.
func (l *Listener) Event() wire.Event { return l.event }

// Emit shapes the inbound payload, invokes the callback, and validates
// the result against the event's wire contract.
func (l *Listener) Emit(ctx context.Context, data json.RawMessage) (any, error) {
	return l.emit(ctx, data)
}

// Listenable reports whether the event kind accepts typed listeners.
// Direct sale-mutation notifications are not listenable here; they go
// through the sale dispatch table.
func Listenable(e wire.Event) bool {
	switch e {
	case wire.EventReady,
		wire.EventRequestSettings,
		wire.EventRequestButtons,
		wire.EventRequestTableColumns,
		wire.EventRequestSellScreenOpts,
		wire.EventSaleComplete,
		wire.EventReceiptRequest,
		wire.EventAudioReady,
		wire.EventAudioPermissionChange,
		wire.EventFulfilmentGetOrder,
		wire.EventFulfilmentProcessOrder,
		wire.EventFulfilmentApproval,
		wire.EventFulfilmentCompleted,
		wire.EventGiftCardCodeCheck:
		return true
	}
	return false
}

// Location is the register context delivered with READY.
type Location struct {
	RegisterID string `json:"register"`
	OutletID   string `json:"outlet"`
	UserID     string `json:"user"`
}

// NewReady wraps a READY callback. READY carries the location context and
// returns nothing.
func NewReady(fn func(ctx context.Context, loc Location)) *Listener {
	return &Listener{
		event: wire.EventReady,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var loc Location
			if len(data) > 0 {
				if err := json.Unmarshal(data, &loc); err != nil {
					return nil, fmt.Errorf("decode READY payload: %w", err)
				}
			}
			fn(ctx, loc)
			return nil, nil
		},
	}
}

// NewRequestSettings wraps a REQUEST_SETTINGS callback. The callback
// returns the application's settings object.
func NewRequestSettings(fn func(ctx context.Context) (map[string]any, error)) *Listener {
	return &Listener{
		event: wire.EventRequestSettings,
		emit: func(ctx context.Context, _ json.RawMessage) (any, error) {
			settings, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			if settings == nil {
				return nil, &ValidationError{Event: wire.EventRequestSettings, Reason: "callback returned no settings object"}
			}
			return settings, nil
		},
	}
}

// NewRequestButtons wraps a REQUEST_BUTTONS callback. The callback
// returns the buttons to render at the named location; they are
// serialized to descriptors before returning to the host.
func NewRequestButtons(fn func(ctx context.Context, location string) ([]*action.Button, error)) *Listener {
	return &Listener{
		event: wire.EventRequestButtons,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var payload struct {
				Location string `json:"location"`
			}
			if len(data) > 0 {
				if err := json.Unmarshal(data, &payload); err != nil {
					return nil, fmt.Errorf("decode REQUEST_BUTTONS payload: %w", err)
				}
			}
			buttons, err := fn(ctx, payload.Location)
			if err != nil {
				return nil, err
			}
			out := make([]wire.Descriptor, 0, len(buttons))
			for _, b := range buttons {
				if b == nil {
					return nil, &ValidationError{Event: wire.EventRequestButtons, Reason: "callback returned a nil button"}
				}
				out = append(out, action.Serialize(b))
			}
			return out, nil
		},
	}
}

// TableColumn is one column contributed to a host table view.
type TableColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// NewRequestTableColumns wraps a REQUEST_TABLE_COLUMNS callback.
func NewRequestTableColumns(fn func(ctx context.Context, table string) ([]TableColumn, error)) *Listener {
	return &Listener{
		event: wire.EventRequestTableColumns,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var payload struct {
				Table string `json:"table"`
			}
			if len(data) > 0 {
				if err := json.Unmarshal(data, &payload); err != nil {
					return nil, fmt.Errorf("decode REQUEST_TABLE_COLUMNS payload: %w", err)
				}
			}
			columns, err := fn(ctx, payload.Table)
			if err != nil {
				return nil, err
			}
			for _, c := range columns {
				if c.Key == "" {
					return nil, &ValidationError{Event: wire.EventRequestTableColumns, Reason: "column is missing a key"}
				}
			}
			return columns, nil
		},
	}
}

// SellScreenOption is one option injected into the host's sell screen.
// The host requires both a URL and a title.
type SellScreenOption struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// NewRequestSellScreenOptions wraps a REQUEST_SELL_SCREEN_OPTIONS
// callback. Every returned option must carry a URL and a title.
func NewRequestSellScreenOptions(fn func(ctx context.Context, current sale.Snapshot) ([]SellScreenOption, error)) *Listener {
	return &Listener{
		event: wire.EventRequestSellScreenOpts,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var current sale.Snapshot
			if len(data) > 0 {
				if err := json.Unmarshal(data, &current); err != nil {
					return nil, fmt.Errorf("decode REQUEST_SELL_SCREEN_OPTIONS payload: %w", err)
				}
			}
			options, err := fn(ctx, current)
			if err != nil {
				return nil, err
			}
			for _, o := range options {
				if o.URL == "" {
					return nil, &ValidationError{Event: wire.EventRequestSellScreenOpts, Reason: "option is missing a url"}
				}
				if o.Title == "" {
					return nil, &ValidationError{Event: wire.EventRequestSellScreenOpts, Reason: "option is missing a title"}
				}
			}
			return options, nil
		},
	}
}

// NewSaleComplete wraps a SALE_COMPLETE callback, delivered with the
// completed sale's snapshot.
func NewSaleComplete(fn func(ctx context.Context, completed sale.Snapshot)) *Listener {
	return &Listener{
		event: wire.EventSaleComplete,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var snap sale.Snapshot
			if len(data) > 0 {
				if err := json.Unmarshal(data, &snap); err != nil {
					return nil, fmt.Errorf("decode SALE_COMPLETE payload: %w", err)
				}
			}
			fn(ctx, snap)
			return nil, nil
		},
	}
}

// ReceiptRequest is the payload of RECEIPT_REQUEST.
type ReceiptRequest struct {
	SaleID string `json:"saleId"`
	Copies int    `json:"copies"`
}

// NewReceiptRequest wraps a RECEIPT_REQUEST callback. The callback
// returns the receipt body lines to append.
func NewReceiptRequest(fn func(ctx context.Context, req ReceiptRequest) ([]string, error)) *Listener {
	return &Listener{
		event: wire.EventReceiptRequest,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var req ReceiptRequest
			if len(data) > 0 {
				if err := json.Unmarshal(data, &req); err != nil {
					return nil, fmt.Errorf("decode RECEIPT_REQUEST payload: %w", err)
				}
			}
			return fn(ctx, req)
		},
	}
}

// NewAudioReady wraps an AUDIO_READY callback.
func NewAudioReady(fn func(ctx context.Context)) *Listener {
	return &Listener{
		event: wire.EventAudioReady,
		emit: func(ctx context.Context, _ json.RawMessage) (any, error) {
			fn(ctx)
			return nil, nil
		},
	}
}

// NewAudioPermissionChange wraps an AUDIO_PERMISSION_CHANGE callback.
func NewAudioPermissionChange(fn func(ctx context.Context, granted bool)) *Listener {
	return &Listener{
		event: wire.EventAudioPermissionChange,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var payload struct {
				Granted bool `json:"granted"`
			}
			if len(data) > 0 {
				if err := json.Unmarshal(data, &payload); err != nil {
					return nil, fmt.Errorf("decode AUDIO_PERMISSION_CHANGE payload: %w", err)
				}
			}
			fn(ctx, payload.Granted)
			return nil, nil
		},
	}
}

// GiftCardCheck is the payload of GIFT_CARD_CODE_CHECK.
type GiftCardCheck struct {
	Code string `json:"code"`
}

// GiftCardCheckResult is the shape a gift-card check callback returns.
type GiftCardCheckResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// NewGiftCardCodeCheck wraps a GIFT_CARD_CODE_CHECK callback.
func NewGiftCardCodeCheck(fn func(ctx context.Context, check GiftCardCheck) (GiftCardCheckResult, error)) *Listener {
	return &Listener{
		event: wire.EventGiftCardCodeCheck,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var check GiftCardCheck
			if len(data) > 0 {
				if err := json.Unmarshal(data, &check); err != nil {
					return nil, fmt.Errorf("decode GIFT_CARD_CODE_CHECK payload: %w", err)
				}
			}
			return fn(ctx, check)
		},
	}
}
