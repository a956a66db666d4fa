package sale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddProduct_AppendsAndTracksTotal(t *testing.T) {
	s := New()

	require.NoError(t, s.AddProduct(NewProduct("coffee", 1, 4.5)))
	require.NoError(t, s.AddProduct(NewProduct("muffin", 2, 9.0)))

	products := s.Products()
	require.Len(t, products, 2)
	assert.Equal(t, []int{0}, products[0].IndexAddress())
	assert.Equal(t, []int{1}, products[1].IndexAddress())
	assert.False(t, products[0].Edited())
	assert.InDelta(t, 13.5, s.Totals().Sale, 0.0001)
}

func TestAddProduct_MergePreservesExistingUnitRate(t *testing.T) {
	s := New()

	require.NoError(t, s.AddProduct(NewProduct("p", 1, 24.99)))
	require.NoError(t, s.AddProduct(NewProduct("p", 1, 25.99)))

	products := s.Products()
	require.Len(t, products, 1)
	assert.Equal(t, 2.0, products[0].Quantity())
	// The existing rate wins: 24.99 * 2, not 24.99 + 25.99.
	assert.Equal(t, 49.98, products[0].Price())
	assert.Equal(t, 49.98, s.Totals().Sale)
}

func TestAddProduct_ZeroPriceLine(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("freebie", 1, 0)))
	assert.Zero(t, s.Totals().Sale)
}

func TestRemoveProduct_SplicesAndReindexes(t *testing.T) {
	s := New()
	a := NewProduct("a", 1, 10)
	b := NewProduct("b", 1, 20)
	require.NoError(t, s.AddProduct(a))
	require.NoError(t, s.AddProduct(b))

	require.NoError(t, s.RemoveProduct(NewProduct("a", 1, 10)))

	products := s.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "b", products[0].ID())
	assert.Equal(t, []int{0}, products[0].IndexAddress())
	assert.Equal(t, 20.0, s.Totals().Sale)
}

func TestRemoveProduct_UnknownIDFails(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("a", 1, 10)))

	err := s.RemoveProduct(NewProduct("missing", 1, 0))
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestRemoveProduct_LastLineGuardedByPaidBalance(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("a", 1, 10)))
	require.NoError(t, s.AddPayment(NewPayment("cash", 10, 0, PaymentCompleted)))

	err := s.RemoveProduct(NewProduct("a", 1, 10))
	require.ErrorIs(t, err, ErrLastProductPaid)
	require.Len(t, s.Products(), 1)
}

func TestUpdateProduct_QuantityUsesPreChangeRate(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("a", 2, 10)))

	intent := NewProduct("a", 2, 10)
	intent.SetQuantity(3)
	require.NoError(t, s.UpdateProduct(intent))

	products := s.Products()
	assert.Equal(t, 3.0, products[0].Quantity())
	assert.Equal(t, 15.0, products[0].Price())
	assert.Equal(t, 15.0, s.Totals().Sale)
	assert.True(t, products[0].Edited())
	assert.False(t, intent.Modified(), "intents must be cleared once applied")
}

func TestUpdateProduct_PriceAndMetaData(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("a", 1, 10)))

	intent := NewProduct("a", 1, 10)
	intent.SetPrice(8.5)
	intent.SetMetaData(map[string]any{"promo": "staff"})
	require.NoError(t, s.UpdateProduct(intent))

	products := s.Products()
	assert.Equal(t, 8.5, products[0].Price())
	assert.Equal(t, map[string]any{"promo": "staff"}, products[0].MetaData())
	assert.Equal(t, 8.5, s.Totals().Sale)
}

func TestUpdateProduct_UnknownIDFails(t *testing.T) {
	s := New()
	intent := NewProduct("ghost", 1, 1)
	intent.SetPrice(2)
	require.ErrorIs(t, s.UpdateProduct(intent), ErrProductNotFound)
}

func TestTotals_IncrementalRoundingScript(t *testing.T) {
	s := New()

	// Each step rounds before the next; a naive final recompute drifts.
	require.NoError(t, s.AddProduct(NewProduct("a", 3, 10.00)))
	require.NoError(t, s.AddProduct(NewProduct("b", 1, 0.10)))
	require.NoError(t, s.AddProduct(NewProduct("a", 1, 99.99))) // merge at rate 10/3

	intent := NewProduct("b", 1, 0.10)
	intent.SetQuantity(3)
	require.NoError(t, s.UpdateProduct(intent))

	// a: round(10/3*4) = 13.33; b: round(0.1*3) = 0.30
	products := s.Products()
	require.Equal(t, 13.33, products[0].Price())
	require.Equal(t, 0.30, products[1].Price())
	require.Equal(t, 13.63, s.Totals().Sale)
}

func TestAddPayment_TracksPaidNetOfCashout(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("a", 1, 50)))
	require.NoError(t, s.AddPayment(NewPayment("eftpos", 70, 20, PaymentCompleted)))

	assert.Equal(t, 50.0, s.Totals().Paid)
	require.Len(t, s.Payments(), 1)
}

func TestAddPayment_CancelledAndFailedSkipTotals(t *testing.T) {
	s := New()
	require.NoError(t, s.AddPayment(NewPayment("card", 10, 0, PaymentCancelled)))
	require.NoError(t, s.AddPayment(NewPayment("card", 10, 0, PaymentFailed)))

	assert.Zero(t, s.Totals().Paid)
	assert.Len(t, s.Payments(), 2)
}

func TestReversePayment_GuardsAgainstNegativePaid(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("a", 1, 30)))
	require.NoError(t, s.AddPayment(NewPayment("card", 12.99, 0, PaymentCompleted)))

	err := s.ReversePayment(NewPayment("card", 24.99, 0, PaymentCompleted))
	require.ErrorIs(t, err, ErrReversalExceedsPaid)
	require.Len(t, s.Payments(), 1)
	require.Equal(t, 12.99, s.Totals().Paid)
}

func TestReversePayment_AppendsNegatedRecord(t *testing.T) {
	s := New()
	require.NoError(t, s.AddPayment(NewPayment("card", 20, 0, PaymentCompleted)))
	require.NoError(t, s.ReversePayment(NewPayment("card", 15, 0, PaymentCompleted)))

	payments := s.Payments()
	require.Len(t, payments, 2)
	assert.Equal(t, -15.0, payments[1].Amount())
	assert.Equal(t, 5.0, s.Totals().Paid)
}

func TestReversePayment_CancelledOriginalHasNoTotalEffect(t *testing.T) {
	s := New()
	require.NoError(t, s.AddPayment(NewPayment("card", 20, 0, PaymentCompleted)))
	require.NoError(t, s.ReversePayment(NewPayment("card", 20, 0, PaymentCancelled)))

	assert.Equal(t, 20.0, s.Totals().Paid)
	assert.Len(t, s.Payments(), 2)
}

func TestCustomer_AddAndRemove(t *testing.T) {
	s := New()
	require.NoError(t, s.AddCustomer(NewCustomer("c1", "Alex")))
	require.NotNil(t, s.Customer())

	require.NoError(t, s.RemoveCustomer())
	require.Nil(t, s.Customer())
	require.ErrorIs(t, s.RemoveCustomer(), ErrNoCustomer)
}

func TestCancel_ClearsStateAndLocksOutMutators(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("a", 1, 10)))
	require.NoError(t, s.AddPayment(NewPayment("cash", 5, 0, PaymentCompleted)))
	require.NoError(t, s.AddCustomer(NewCustomer("c1", "Alex")))
	require.NoError(t, s.SetNotes(Notes{Internal: "note"}))

	require.NoError(t, s.Cancel())
	require.Equal(t, StatusCancelled, s.Status())
	assert.Empty(t, s.Products())
	assert.Empty(t, s.Payments())
	assert.Nil(t, s.Customer())
	assert.Equal(t, Notes{}, s.Notes())
	assert.Equal(t, Totals{}, s.Totals())

	require.ErrorIs(t, s.AddProduct(NewProduct("a", 1, 10)), ErrSaleCancelled)
	require.ErrorIs(t, s.AddPayment(NewPayment("cash", 5, 0, PaymentCompleted)), ErrSaleCancelled)
	require.ErrorIs(t, s.RemoveProduct(NewProduct("a", 1, 10)), ErrSaleCancelled)
	require.ErrorIs(t, s.UpdateProduct(NewProduct("a", 1, 10)), ErrSaleCancelled)
	require.ErrorIs(t, s.ReversePayment(NewPayment("cash", 5, 0, PaymentCompleted)), ErrSaleCancelled)
	require.ErrorIs(t, s.AddCustomer(NewCustomer("c1", "Alex")), ErrSaleCancelled)
	require.ErrorIs(t, s.Cancel(), ErrSaleCancelled)

	// Fields remain at their cleared defaults after the rejected calls.
	assert.Empty(t, s.Products())
	assert.Equal(t, Totals{}, s.Totals())
}

func TestSnapshot_RoundTripPreservesState(t *testing.T) {
	s := New()
	parent := NewProduct("bundle", 1, 30)
	parent.AddComponent(NewProduct("part", 2, 0))
	require.NoError(t, s.AddProduct(parent))
	require.NoError(t, s.AddPayment(NewPayment("cash", 10, 0, PaymentCompleted)))
	require.NoError(t, s.AddCustomer(NewCustomer("c1", "Alex")))
	require.NoError(t, s.SetOrderReference("web-1042"))

	snap := s.Snapshot()
	require.Len(t, snap.Products, 1)
	require.Len(t, snap.Products[0].Components, 1)
	require.Equal(t, []int{0}, snap.Products[0].IndexAddress)

	hydrated := FromSnapshot(snap)
	require.Equal(t, s.Totals(), hydrated.Totals())
	require.Equal(t, "web-1042", hydrated.OrderReference())
	products := hydrated.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "bundle", products[0].ID())
	assert.Len(t, products[0].Components(), 1)
	require.NotNil(t, hydrated.Customer())
	assert.Equal(t, "c1", hydrated.Customer().ID())
}

func TestBalance(t *testing.T) {
	s := New()
	require.NoError(t, s.AddProduct(NewProduct("a", 1, 19.99)))
	require.NoError(t, s.AddPayment(NewPayment("cash", 10, 0, PaymentCompleted)))
	assert.Equal(t, 9.99, s.Balance())
}
