package sale

// Snapshot is the wire shape of a whole sale, used for current-sale
// responses and sale-creation payloads.
type Snapshot struct {
	Products       []ProductSnapshot `json:"products"`
	Payments       []PaymentSnapshot `json:"payments"`
	Customer       *CustomerSnapshot `json:"customer,omitempty"`
	Notes          Notes             `json:"notes"`
	Totals         Totals            `json:"totals"`
	OrderReference string            `json:"orderReference,omitempty"`
	RefundReason   string            `json:"refundReason,omitempty"`
	PriceSet       string            `json:"priceSet,omitempty"`
	MetaData       map[string]any    `json:"metaData,omitempty"`
	Cancelled      bool              `json:"cancelled"`
}

// Snapshot returns a deep wire copy of the sale.
func (s *Sale) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Products:       make([]ProductSnapshot, 0, len(s.products)),
		Payments:       make([]PaymentSnapshot, 0, len(s.payments)),
		Notes:          s.notes,
		Totals:         s.totals,
		OrderReference: s.orderReference,
		RefundReason:   s.refundReason,
		PriceSet:       s.priceSet,
		MetaData:       s.metaData,
		Cancelled:      s.status == StatusCancelled,
	}
	for _, p := range s.products {
		snap.Products = append(snap.Products, p.Snapshot())
	}
	for _, p := range s.payments {
		snap.Payments = append(snap.Payments, p.Snapshot())
	}
	if s.customer != nil {
		c := s.customer.Snapshot()
		snap.Customer = &c
	}
	return snap
}

// FromSnapshot hydrates a sale from a host-pushed snapshot. Totals are
// taken from the snapshot, not recomputed; top-level index addresses are
// reassigned positionally, nested ones kept as sent.
func FromSnapshot(snap Snapshot) *Sale {
	s := New()
	for i, ps := range snap.Products {
		p := ProductFromSnapshot(ps)
		p.indexAddress = []int{i}
		s.products = append(s.products, p)
	}
	for _, ps := range snap.Payments {
		s.payments = append(s.payments, PaymentFromSnapshot(ps))
	}
	if snap.Customer != nil {
		s.customer = CustomerFromSnapshot(*snap.Customer)
	}
	s.notes = snap.Notes
	s.totals = snap.Totals
	s.orderReference = snap.OrderReference
	s.refundReason = snap.RefundReason
	s.priceSet = snap.PriceSet
	s.metaData = snap.MetaData
	if snap.Cancelled {
		s.status = StatusCancelled
	}
	return s
}
