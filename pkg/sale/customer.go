package sale

import "github.com/google/uuid"

// Customer is the customer attached to a sale.
type Customer struct {
	id         string
	instanceID string
	name       string
}

// NewCustomer constructs a customer with a business ID and display name.
func NewCustomer(id, name string) *Customer {
	return &Customer{id: id, instanceID: uuid.NewString(), name: name}
}

// ID returns the business ID.
func (c *Customer) ID() string { return c.id }

// InstanceID returns the instance ID.
func (c *Customer) InstanceID() string { return c.instanceID }

// Name returns the display name.
func (c *Customer) Name() string { return c.name }

// CustomerSnapshot is the wire shape of a customer.
type CustomerSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Snapshot returns the customer's wire shape.
func (c *Customer) Snapshot() CustomerSnapshot {
	return CustomerSnapshot{ID: c.id, Name: c.name}
}

// CustomerFromSnapshot hydrates a customer from its wire shape.
func CustomerFromSnapshot(s CustomerSnapshot) *Customer {
	return NewCustomer(s.ID, s.Name)
}
