package application

import (
	"context"

	"github.com/onshopfront/embedded-go/pkg/sale"
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// SaleOperation names one mutation the host applies to its current sale.
type SaleOperation string

const (
	OpAddProduct     SaleOperation = "add_product"
	OpRemoveProduct  SaleOperation = "remove_product"
	OpUpdateProduct  SaleOperation = "update_product"
	OpAddPayment     SaleOperation = "add_payment"
	OpReversePayment SaleOperation = "reverse_payment"
	OpAddCustomer    SaleOperation = "add_customer"
	OpRemoveCustomer SaleOperation = "remove_customer"
	OpSetNotes       SaleOperation = "set_notes"
	OpCancelSale     SaleOperation = "cancel_sale"
)

// SaleUpdate is the wire payload of one sale mutation.
type SaleUpdate struct {
	Operation SaleOperation          `json:"operation"`
	Product   *sale.ProductSnapshot  `json:"product,omitempty"`
	Payment   *sale.PaymentSnapshot  `json:"payment,omitempty"`
	Customer  *sale.CustomerSnapshot `json:"customer,omitempty"`
	Notes     *sale.Notes            `json:"notes,omitempty"`
}

// UpdateSale sends one mutation to the host and confirms it by refetching
// the current sale. The host owns the aggregate on this path; the
// returned sale is the host's post-mutation state.
func (a *Application) UpdateSale(ctx context.Context, update SaleUpdate) (*sale.Sale, error) {
	if err := a.bridge.SendMessage(wire.CommandSaleUpdate, update, ""); err != nil {
		return nil, err
	}
	return a.GetCurrentSale(ctx)
}

// AddProductToSale adds a product line to the host's current sale.
func (a *Application) AddProductToSale(ctx context.Context, p *sale.Product) (*sale.Sale, error) {
	snap := p.Snapshot()
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpAddProduct, Product: &snap})
}

// RemoveProductFromSale removes a product line from the host's current
// sale by business ID.
func (a *Application) RemoveProductFromSale(ctx context.Context, p *sale.Product) (*sale.Sale, error) {
	snap := p.Snapshot()
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpRemoveProduct, Product: &snap})
}

// UpdateSaleProduct applies a product's pending change intents to the
// host's current sale.
func (a *Application) UpdateSaleProduct(ctx context.Context, p *sale.Product) (*sale.Sale, error) {
	snap := p.Snapshot()
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpUpdateProduct, Product: &snap})
}

// AddPaymentToSale tenders a payment against the host's current sale.
func (a *Application) AddPaymentToSale(ctx context.Context, p *sale.Payment) (*sale.Sale, error) {
	snap := p.Snapshot()
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpAddPayment, Payment: &snap})
}

// ReverseSalePayment reverses a payment on the host's current sale.
func (a *Application) ReverseSalePayment(ctx context.Context, p *sale.Payment) (*sale.Sale, error) {
	snap := p.Snapshot()
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpReversePayment, Payment: &snap})
}

// AddCustomerToSale attaches a customer to the host's current sale.
func (a *Application) AddCustomerToSale(ctx context.Context, c *sale.Customer) (*sale.Sale, error) {
	snap := c.Snapshot()
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpAddCustomer, Customer: &snap})
}

// RemoveCustomerFromSale detaches the customer from the host's current
// sale.
func (a *Application) RemoveCustomerFromSale(ctx context.Context) (*sale.Sale, error) {
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpRemoveCustomer})
}

// SetSaleNotes replaces the notes on the host's current sale.
func (a *Application) SetSaleNotes(ctx context.Context, notes sale.Notes) (*sale.Sale, error) {
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpSetNotes, Notes: &notes})
}

// CancelCurrentSale cancels the host's current sale.
func (a *Application) CancelCurrentSale(ctx context.Context) (*sale.Sale, error) {
	return a.UpdateSale(ctx, SaleUpdate{Operation: OpCancelSale})
}
