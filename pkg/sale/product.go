package sale

import "github.com/google/uuid"

// Product is one sale line. It is identified by its externally supplied
// business ID plus an internally generated instance ID, so two cart lines
// of the same product remain distinguishable. Products may contain nested
// component products.
type Product struct {
	id         string
	instanceID string
	name       string
	quantity   float64
	price      float64
	metaData   map[string]any
	components []*Product

	indexAddress []int
	edited       bool

	quantityModified bool
	priceModified    bool
	metaDataModified bool
}

// NewProduct constructs a product intent to be added to a sale.
func NewProduct(id string, quantity, price float64) *Product {
	return &Product{
		id:         id,
		instanceID: uuid.NewString(),
		quantity:   quantity,
		price:      price,
	}
}

// ID returns the business ID.
func (p *Product) ID() string { return p.id }

// InstanceID returns the per-line instance ID.
func (p *Product) InstanceID() string { return p.instanceID }

// Name returns the display name.
func (p *Product) Name() string { return p.name }

// SetName sets the display name.
func (p *Product) SetName(name string) { p.name = name }

// Quantity returns the line quantity.
func (p *Product) Quantity() float64 { return p.quantity }

// Price returns the line price (not the unit rate).
func (p *Product) Price() float64 { return p.price }

// MetaData returns the line metadata.
func (p *Product) MetaData() map[string]any { return p.metaData }

// Components returns nested component products.
func (p *Product) Components() []*Product { return p.components }

// AddComponent nests a component product under this line.
func (p *Product) AddComponent(c *Product) {
	p.components = append(p.components, c)
}

// IndexAddress returns the product's path in the sale's product tree.
// Top-level addresses are maintained by the sale; nested addresses are
// only populated when hydrating a host snapshot.
func (p *Product) IndexAddress() []int {
	return append([]int(nil), p.indexAddress...)
}

// Edited reports whether the line has been changed since it was added.
func (p *Product) Edited() bool { return p.edited }

// SetQuantity records a quantity change intent. The sale's write path
// recomputes the line price from the pre-change unit rate when the intent
// is applied.
func (p *Product) SetQuantity(quantity float64) {
	p.quantity = quantity
	p.quantityModified = true
}

// SetPrice records a line price override intent.
func (p *Product) SetPrice(price float64) {
	p.price = price
	p.priceModified = true
}

// SetMetaData records a wholesale metadata replacement intent.
func (p *Product) SetMetaData(meta map[string]any) {
	p.metaData = meta
	p.metaDataModified = true
}

// Modified reports whether any change intent is pending.
func (p *Product) Modified() bool {
	return p.quantityModified || p.priceModified || p.metaDataModified
}

// clearModified resets the dirty flags after the write path consumed
// them.
func (p *Product) clearModified() {
	p.quantityModified = false
	p.priceModified = false
	p.metaDataModified = false
}

// ProductSnapshot is the wire shape of a product, including its nested
// components.
type ProductSnapshot struct {
	ID           string            `json:"id"`
	Name         string            `json:"name,omitempty"`
	Quantity     float64           `json:"quantity"`
	Price        float64           `json:"price"`
	MetaData     map[string]any    `json:"metaData,omitempty"`
	Components   []ProductSnapshot `json:"components,omitempty"`
	IndexAddress []int             `json:"indexAddress"`

	// Pending change intents, carried so the write path on the far side
	// can apply exactly the deltas the caller recorded.
	QuantityModified bool `json:"quantityModified,omitempty"`
	PriceModified    bool `json:"priceModified,omitempty"`
	MetaDataModified bool `json:"metaDataModified,omitempty"`
}

// Snapshot returns the product's wire shape.
func (p *Product) Snapshot() ProductSnapshot {
	s := ProductSnapshot{
		ID:           p.id,
		Name:         p.name,
		Quantity:     p.quantity,
		Price:        p.price,
		MetaData:     p.metaData,
		IndexAddress: p.IndexAddress(),

		QuantityModified: p.quantityModified,
		PriceModified:    p.priceModified,
		MetaDataModified: p.metaDataModified,
	}
	for _, c := range p.components {
		s.Components = append(s.Components, c.Snapshot())
	}
	return s
}

// ProductFromSnapshot hydrates a product from its wire shape, including
// any pending change intents. Nested index addresses are taken as sent,
// not recomputed.
func ProductFromSnapshot(s ProductSnapshot) *Product {
	p := &Product{
		id:           s.ID,
		instanceID:   uuid.NewString(),
		name:         s.Name,
		quantity:     s.Quantity,
		price:        s.Price,
		metaData:     s.MetaData,
		indexAddress: append([]int(nil), s.IndexAddress...),

		quantityModified: s.QuantityModified,
		priceModified:    s.PriceModified,
		metaDataModified: s.MetaDataModified,
	}
	for _, c := range s.Components {
		p.components = append(p.components, ProductFromSnapshot(c))
	}
	return p
}
