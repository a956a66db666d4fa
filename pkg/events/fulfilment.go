package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/onshopfront/embedded-go/pkg/wire"
)

// FulfilmentItem is one line of a fulfilment order.
type FulfilmentItem struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

// FulfilmentOrder is an order managed by an external fulfilment provider.
type FulfilmentOrder struct {
	ID     string           `json:"id"`
	Status string           `json:"status"`
	Items  []FulfilmentItem `json:"items"`
}

func decodeOrder(event wire.Event, data json.RawMessage) (FulfilmentOrder, error) {
	var order FulfilmentOrder
	if len(data) > 0 {
		if err := json.Unmarshal(data, &order); err != nil {
			return order, fmt.Errorf("decode %s payload: %w", event, err)
		}
	}
	return order, nil
}

// NewFulfilmentGetOrder wraps a FULFILMENT_GET_ORDER callback. The
// callback resolves the provider's view of the order; the returned order
// must carry an ID.
func NewFulfilmentGetOrder(fn func(ctx context.Context, orderID string) (FulfilmentOrder, error)) *Listener {
	return &Listener{
		event: wire.EventFulfilmentGetOrder,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			var payload struct {
				OrderID string `json:"orderId"`
			}
			if len(data) > 0 {
				if err := json.Unmarshal(data, &payload); err != nil {
					return nil, fmt.Errorf("decode FULFILMENT_GET_ORDER payload: %w", err)
				}
			}
			order, err := fn(ctx, payload.OrderID)
			if err != nil {
				return nil, err
			}
			if order.ID == "" {
				return nil, &ValidationError{Event: wire.EventFulfilmentGetOrder, Reason: "order is missing an id"}
			}
			return order, nil
		},
	}
}

// NewFulfilmentProcessOrder wraps a FULFILMENT_PROCESS_ORDER callback.
func NewFulfilmentProcessOrder(fn func(ctx context.Context, order FulfilmentOrder) error) *Listener {
	return &Listener{
		event: wire.EventFulfilmentProcessOrder,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			order, err := decodeOrder(wire.EventFulfilmentProcessOrder, data)
			if err != nil {
				return nil, err
			}
			return nil, fn(ctx, order)
		},
	}
}

// NewFulfilmentApproval wraps a FULFILMENT_ORDER_APPROVAL callback. The
// callback decides whether the host may proceed with the order.
func NewFulfilmentApproval(fn func(ctx context.Context, order FulfilmentOrder) (bool, error)) *Listener {
	return &Listener{
		event: wire.EventFulfilmentApproval,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			order, err := decodeOrder(wire.EventFulfilmentApproval, data)
			if err != nil {
				return nil, err
			}
			approved, err := fn(ctx, order)
			if err != nil {
				return nil, err
			}
			return map[string]bool{"approved": approved}, nil
		},
	}
}

// NewFulfilmentCompleted wraps a FULFILMENT_ORDER_COMPLETED callback.
func NewFulfilmentCompleted(fn func(ctx context.Context, order FulfilmentOrder)) *Listener {
	return &Listener{
		event: wire.EventFulfilmentCompleted,
		emit: func(ctx context.Context, data json.RawMessage) (any, error) {
			order, err := decodeOrder(wire.EventFulfilmentCompleted, data)
			if err != nil {
				return nil, err
			}
			fn(ctx, order)
			return nil, nil
		},
	}
}
