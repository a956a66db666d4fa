package sale

import "github.com/google/uuid"

// PaymentStatus is the host-reported state of a payment.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentPending   PaymentStatus = "pending"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentFailed    PaymentStatus = "failed"
)

// countsTowardsPaid reports whether the payment affects the paid total.
func (s PaymentStatus) countsTowardsPaid() bool {
	return s != PaymentCancelled && s != PaymentFailed
}

// Payment is one tender against a sale. Amount is the tendered value;
// Cashout is the portion returned to the customer as cash.
type Payment struct {
	id         string
	instanceID string
	amount     float64
	cashout    float64
	status     PaymentStatus
}

// NewPayment constructs a payment with the given payment-method business
// ID, amount, cashout portion, and status.
func NewPayment(id string, amount, cashout float64, status PaymentStatus) *Payment {
	return &Payment{
		id:         id,
		instanceID: uuid.NewString(),
		amount:     amount,
		cashout:    cashout,
		status:     status,
	}
}

// ID returns the payment method's business ID.
func (p *Payment) ID() string { return p.id }

// InstanceID returns the per-record instance ID.
func (p *Payment) InstanceID() string { return p.instanceID }

// Amount returns the tendered amount.
func (p *Payment) Amount() float64 { return p.amount }

// Cashout returns the cashout portion.
func (p *Payment) Cashout() float64 { return p.cashout }

// Status returns the payment status.
func (p *Payment) Status() PaymentStatus { return p.status }

// PaymentSnapshot is the wire shape of a payment.
type PaymentSnapshot struct {
	ID      string        `json:"id"`
	Amount  float64       `json:"amount"`
	Cashout float64       `json:"cashout,omitempty"`
	Status  PaymentStatus `json:"status"`
}

// Snapshot returns the payment's wire shape.
func (p *Payment) Snapshot() PaymentSnapshot {
	return PaymentSnapshot{ID: p.id, Amount: p.amount, Cashout: p.cashout, Status: p.status}
}

// PaymentFromSnapshot hydrates a payment from its wire shape.
func PaymentFromSnapshot(s PaymentSnapshot) *Payment {
	return NewPayment(s.ID, s.Amount, s.Cashout, s.Status)
}
