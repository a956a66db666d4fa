package sale

import "errors"

var (
	// ErrSaleCancelled indicates a mutation was attempted on a cancelled
	// sale.
	ErrSaleCancelled = errors.New("sale has been cancelled")

	// ErrProductNotFound indicates no top-level product matches the given
	// business ID.
	ErrProductNotFound = errors.New("product not found on sale")

	// ErrLastProductPaid indicates the removal would empty the product
	// list while a paid balance remains.
	ErrLastProductPaid = errors.New("cannot remove the last product from a sale with payments")

	// ErrReversalExceedsPaid indicates the reversal would drive the paid
	// total negative.
	ErrReversalExceedsPaid = errors.New("reversal exceeds the paid total")

	// ErrNoCustomer indicates the sale has no customer to remove.
	ErrNoCustomer = errors.New("sale has no customer")
)
