package events

import (
	"context"

	"github.com/onshopfront/embedded-go/pkg/sale"
)

// SaleChange is the payload of a direct sale-mutation notification. Only
// the fields relevant to the specific notification are populated.
type SaleChange struct {
	Product  *sale.ProductSnapshot  `json:"product,omitempty"`
	Products []sale.ProductSnapshot `json:"products,omitempty"`
	Customer *sale.CustomerSnapshot `json:"customer,omitempty"`
	Quantity float64                `json:"quantity,omitempty"`
}

// SaleHandler receives direct sale-mutation notifications. They are
// fire-and-forget: no request ID, no response.
type SaleHandler func(ctx context.Context, change SaleChange)
