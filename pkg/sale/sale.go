// Package sale holds the in-memory transactional model of the current
// sale: products, payments, customer, and running totals, with the
// consistency rules the host enforces for every mutation.
package sale

import (
	"fmt"
	"sync"
)

// Status is the sale lifecycle state. Cancellation is terminal.
type Status int

const (
	StatusActive Status = iota
	StatusCancelled
)

// Totals are the sale's derived totals, maintained incrementally.
type Totals struct {
	Sale     float64 `json:"sale"`
	Paid     float64 `json:"paid"`
	Savings  float64 `json:"savings"`
	Discount float64 `json:"discount"`
}

// Notes are the operator-facing and customer-facing sale notes.
type Notes struct {
	Internal string `json:"internal,omitempty"`
	External string `json:"external,omitempty"`
}

// Sale is the in-memory sale aggregate. Every mutator is all-or-nothing:
// a rejected call leaves the aggregate exactly as it was.
type Sale struct {
	mu             sync.Mutex
	status         Status
	products       []*Product
	payments       []*Payment
	customer       *Customer
	notes          Notes
	totals         Totals
	orderReference string
	refundReason   string
	priceSet       string
	metaData       map[string]any
}

// New constructs an empty active sale.
func New() *Sale {
	return &Sale{status: StatusActive}
}

func (s *Sale) ensureActive() error {
	if s.status == StatusCancelled {
		return ErrSaleCancelled
	}
	return nil
}

// Status returns the lifecycle state.
func (s *Sale) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Totals returns the current derived totals.
func (s *Sale) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// Products returns the top-level product lines in order.
func (s *Sale) Products() []*Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Product(nil), s.products...)
}

// Payments returns the payment records in order.
func (s *Sale) Payments() []*Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Payment(nil), s.payments...)
}

// Customer returns the attached customer, or nil.
func (s *Sale) Customer() *Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// Notes returns the sale notes.
func (s *Sale) Notes() Notes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes
}

// AddProduct adds a product line. When a line with the same business ID
// already exists at the top level, the quantities merge and the price is
// recomputed from the existing line's unit rate; the incoming product's
// own price is ignored. This matches the host's merge semantics.
func (s *Sale) AddProduct(p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}

	for _, existing := range s.products {
		if existing.id != p.id {
			continue
		}
		oldQuantity := existing.quantity
		oldPrice := existing.price
		rate := oldPrice / oldQuantity
		existing.quantity = oldQuantity + p.quantity
		existing.price = roundCurrency(rate * existing.quantity)
		s.totals.Sale = roundCurrency(s.totals.Sale + (existing.price - oldPrice))
		return nil
	}

	p.indexAddress = []int{len(s.products)}
	p.edited = false
	s.products = append(s.products, p)
	s.totals.Sale = roundCurrency(s.totals.Sale + p.price)
	return nil
}

// RemoveProduct removes the first top-level line matching the product's
// business ID. Removing the last line is rejected while a paid balance
// remains. Remaining lines have their index addresses reassigned.
func (s *Sale) RemoveProduct(p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}

	index := -1
	for i, existing := range s.products {
		if existing.id == p.id {
			index = i
			break
		}
	}
	if index == -1 {
		return fmt.Errorf("%w: %q", ErrProductNotFound, p.id)
	}
	if len(s.products) == 1 && s.totals.Paid != 0 {
		return ErrLastProductPaid
	}

	removed := s.products[index]
	s.products = append(s.products[:index], s.products[index+1:]...)
	s.totals.Sale = roundCurrency(s.totals.Sale - removed.price)
	for i, remaining := range s.products {
		remaining.indexAddress = []int{i}
	}
	return nil
}

// UpdateProduct applies the pending change intents recorded on p to the
// matching top-level line. A quantity change recomputes the line price
// from the pre-change unit rate; a price change applies directly; a
// metadata change replaces wholesale. The intents on p are cleared once
// applied.
func (s *Sale) UpdateProduct(p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}

	var existing *Product
	for _, candidate := range s.products {
		if candidate.id == p.id {
			existing = candidate
			break
		}
	}
	if existing == nil {
		return fmt.Errorf("%w: %q", ErrProductNotFound, p.id)
	}

	if p.quantityModified {
		rate := existing.price / existing.quantity
		oldPrice := existing.price
		existing.quantity = p.quantity
		existing.price = roundCurrency(rate * p.quantity)
		s.totals.Sale = roundCurrency(s.totals.Sale + (existing.price - oldPrice))
		existing.edited = true
	}
	if p.priceModified {
		s.totals.Sale = roundCurrency(s.totals.Sale + (p.price - existing.price))
		existing.price = p.price
		existing.edited = true
	}
	if p.metaDataModified {
		existing.metaData = p.metaData
		existing.edited = true
	}
	p.clearModified()
	return nil
}

// AddPayment appends a payment record. Cancelled and failed payments do
// not move the paid total.
func (s *Sale) AddPayment(p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}

	s.payments = append(s.payments, p)
	if p.status.countsTowardsPaid() {
		s.totals.Paid = roundCurrency(s.totals.Paid + (p.amount - p.cashout))
	}
	return nil
}

// ReversePayment appends a reversal record with the negated amount. A
// reversal that would drive the paid total negative is rejected before
// any state changes. Reversals of cancelled or failed payments are
// recorded without a total effect.
func (s *Sale) ReversePayment(p *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}

	counts := p.status.countsTowardsPaid()
	if counts && roundCurrency(s.totals.Paid-p.amount) < 0 {
		return fmt.Errorf("%w: paid %.2f, reversal %.2f", ErrReversalExceedsPaid, s.totals.Paid, p.amount)
	}

	reversal := NewPayment(p.id, -p.amount, 0, p.status)
	s.payments = append(s.payments, reversal)
	if counts {
		s.totals.Paid = roundCurrency(s.totals.Paid - p.amount)
	}
	return nil
}

// AddCustomer attaches a customer, replacing any existing one.
func (s *Sale) AddCustomer(c *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}
	s.customer = c
	return nil
}

// RemoveCustomer detaches the customer.
func (s *Sale) RemoveCustomer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}
	if s.customer == nil {
		return ErrNoCustomer
	}
	s.customer = nil
	return nil
}

// SetNotes replaces the sale notes.
func (s *Sale) SetNotes(notes Notes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}
	s.notes = notes
	return nil
}

// SetOrderReference sets the external order reference.
func (s *Sale) SetOrderReference(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}
	s.orderReference = ref
	return nil
}

// OrderReference returns the external order reference.
func (s *Sale) OrderReference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderReference
}

// RefundReason returns the refund reason, if any.
func (s *Sale) RefundReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refundReason
}

// PriceSet returns the active price set name.
func (s *Sale) PriceSet() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.priceSet
}

// Cancel clears the sale back to empty defaults and transitions to the
// terminal cancelled state.
func (s *Sale) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureActive(); err != nil {
		return err
	}
	s.products = nil
	s.payments = nil
	s.customer = nil
	s.notes = Notes{}
	s.totals = Totals{}
	s.orderReference = ""
	s.refundReason = ""
	s.metaData = nil
	s.status = StatusCancelled
	return nil
}

// Balance returns the outstanding amount, rounded.
func (s *Sale) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return roundCurrency(s.totals.Sale - s.totals.Paid)
}
