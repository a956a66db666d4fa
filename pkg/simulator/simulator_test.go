package simulator

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onshopfront/embedded-go/pkg/action"
	"github.com/onshopfront/embedded-go/pkg/application"
	"github.com/onshopfront/embedded-go/pkg/bridge"
	"github.com/onshopfront/embedded-go/pkg/events"
	"github.com/onshopfront/embedded-go/pkg/sale"
	"github.com/onshopfront/embedded-go/pkg/wire"
)

const testVendorOrigin = "https://demo.onshopfront.com"

func defaultOptions() Options {
	return Options{
		Location: events.Location{RegisterID: "reg-1", OutletID: "out-1", UserID: "user-1"},
		Token:    "tok-abc",
	}
}

func newPair(t *testing.T, opts Options) (*Host, *application.Application) {
	t.Helper()

	hostEnd, embeddedEnd := bridge.NewPipe(testVendorOrigin, "https://app.example.com")
	host := New(hostEnd, opts)

	app, err := application.New(embeddedEnd, "demo", application.Options{
		RequestTimeout: 2 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		app.Destroy()
		_ = host.Close()
	})

	require.Eventually(t, app.Ready, time.Second, 5*time.Millisecond,
		"handshake did not complete")
	return host, app
}

func TestHandshakeAndLocation(t *testing.T) {
	_, app := newPair(t, defaultOptions())

	loc, err := app.GetLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reg-1", loc.RegisterID)
	assert.Equal(t, "out-1", loc.OutletID)
	assert.Equal(t, "user-1", loc.UserID)
}

func TestSaleUpdateRoundTrip(t *testing.T) {
	host, app := newPair(t, defaultOptions())
	ctx := context.Background()

	got, err := app.AddProductToSale(ctx, sale.NewProduct("prod-1", 2, 49.98))
	require.NoError(t, err)
	require.Len(t, got.Products(), 1)
	assert.InDelta(t, 49.98, got.Totals().Sale, 0.001)

	hostSnap := host.Sale()
	require.Len(t, hostSnap.Products, 1)
	assert.Equal(t, "prod-1", hostSnap.Products[0].ID)

	p := sale.NewProduct("prod-1", 0, 0)
	p.SetQuantity(3)
	got, err = app.UpdateSaleProduct(ctx, p)
	require.NoError(t, err)
	require.Len(t, got.Products(), 1)
	assert.InDelta(t, 3, got.Products()[0].Quantity(), 0.001)
	assert.InDelta(t, 74.97, got.Totals().Sale, 0.001)

	got, err = app.AddCustomerToSale(ctx, sale.NewCustomer("cust-1", "Alex"))
	require.NoError(t, err)
	require.NotNil(t, got.Customer())
	assert.Equal(t, "cust-1", got.Customer().ID())
}

func TestFullTenderCompletesSale(t *testing.T) {
	host, app := newPair(t, defaultOptions())
	ctx := context.Background()

	completed := make(chan sale.Snapshot, 1)
	require.NoError(t, app.AddEventListener(events.NewSaleComplete(func(_ context.Context, snap sale.Snapshot) {
		completed <- snap
	})))

	cleared := make(chan struct{}, 1)
	_, err := app.AddSaleListener(wire.EventSaleClear, func(context.Context, events.SaleChange) {
		select {
		case cleared <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)

	_, err = app.AddProductToSale(ctx, sale.NewProduct("prod-1", 1, 25.00))
	require.NoError(t, err)

	got, err := app.AddPaymentToSale(ctx, sale.NewPayment("cash", 25.00, 0, sale.PaymentCompleted))
	require.NoError(t, err)
	assert.Empty(t, got.Products(), "sale should have been cleared after full tender")

	select {
	case snap := <-completed:
		require.Len(t, snap.Products, 1)
		assert.InDelta(t, 25.00, snap.Totals.Paid, 0.001)
	case <-time.After(time.Second):
		t.Fatal("SALE_COMPLETE never arrived")
	}
	select {
	case <-cleared:
	case <-time.After(time.Second):
		t.Fatal("SALE_CLEAR never arrived")
	}

	require.Len(t, host.CompletedSales(), 1)
}

func TestCancelSaleStartsFresh(t *testing.T) {
	host, app := newPair(t, defaultOptions())
	ctx := context.Background()

	_, err := app.AddProductToSale(ctx, sale.NewProduct("prod-1", 1, 10.00))
	require.NoError(t, err)

	got, err := app.CancelCurrentSale(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Products())
	assert.Equal(t, sale.StatusActive, got.Status(), "host should hand out a fresh active sale")

	_, err = app.AddProductToSale(ctx, sale.NewProduct("prod-2", 1, 5.00))
	require.NoError(t, err)
	assert.Len(t, host.Sale().Products, 1)
}

func TestCreateSalePreconditions(t *testing.T) {
	ctx := context.Background()

	snapshotWith := func(paid float64, cashout float64, tender string) sale.Snapshot {
		s := sale.New()
		require.NoError(t, s.AddProduct(sale.NewProduct("prod-1", 1, 20.00)))
		if paid > 0 {
			require.NoError(t, s.AddPayment(sale.NewPayment(tender, paid, cashout, sale.PaymentCompleted)))
		}
		return s.Snapshot()
	}

	t.Run("no register", func(t *testing.T) {
		opts := defaultOptions()
		opts.Location.RegisterID = ""
		_, app := newPair(t, opts)
		err := app.CreateSale(ctx, snapshotWith(0, 0, ""))
		require.ErrorIs(t, err, application.ErrCreateSaleRejected)
		assert.Contains(t, err.Error(), "register")
	})

	t.Run("no user", func(t *testing.T) {
		opts := defaultOptions()
		opts.Location.UserID = ""
		_, app := newPair(t, opts)
		err := app.CreateSale(ctx, snapshotWith(0, 0, ""))
		require.ErrorIs(t, err, application.ErrCreateSaleRejected)
		assert.Contains(t, err.Error(), "user")
	})

	t.Run("overpayment", func(t *testing.T) {
		_, app := newPair(t, defaultOptions())
		err := app.CreateSale(ctx, snapshotWith(30.00, 0, "cash"))
		require.ErrorIs(t, err, application.ErrCreateSaleRejected)
		assert.Contains(t, err.Error(), "overpayment")
	})

	t.Run("cashout on unsupported tender", func(t *testing.T) {
		_, app := newPair(t, defaultOptions())
		err := app.CreateSale(ctx, snapshotWith(20.00, 5.00, "card"))
		require.ErrorIs(t, err, application.ErrCreateSaleRejected)
		assert.Contains(t, err.Error(), "cashout")
	})

	t.Run("accepted", func(t *testing.T) {
		opts := defaultOptions()
		opts.CashoutTenders = []string{"cash"}
		host, app := newPair(t, opts)
		require.NoError(t, app.CreateSale(ctx, snapshotWith(20.00, 5.00, "cash")))
		assert.Len(t, host.Sale().Products, 1)
	})
}

func TestOptionsTokenAndGiftCards(t *testing.T) {
	opts := defaultOptions()
	opts.OptionValues = map[string]any{"theme": "dark"}
	opts.GiftCards = map[string]events.GiftCardCheckResult{
		"GC-100": {Valid: true},
	}
	_, app := newPair(t, opts)
	ctx := context.Background()

	value, err := app.GetOption(ctx, "theme", "light")
	require.NoError(t, err)
	assert.JSONEq(t, `"dark"`, string(value))

	value, err = app.GetOption(ctx, "missing", "fallback")
	require.NoError(t, err)
	assert.JSONEq(t, `"fallback"`, string(value))

	token, err := app.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)

	result, err := app.CheckGiftCardCode(ctx, "GC-100")
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = app.CheckGiftCardCode(ctx, "GC-999")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "unknown code", result.Message)
}

func TestDatabaseRequests(t *testing.T) {
	ctx := context.Background()

	store, err := OpenStore(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Seed(ctx, "products", []map[string]any{
		{"id": "prod-1", "name": "Coffee", "price": 4.50},
		{"id": "prod-2", "name": "Tea", "price": 3.50},
	}))

	opts := defaultOptions()
	opts.Store = store
	_, app := newPair(t, opts)

	db := app.Database()
	assert.Same(t, db, app.Database())

	count, err := db.Count(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	row, err := db.Get(ctx, "products", "prod-1")
	require.NoError(t, err)
	var product struct {
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}
	require.NoError(t, json.Unmarshal(row, &product))
	assert.Equal(t, "Coffee", product.Name)

	all, err := db.All(ctx, "products")
	require.NoError(t, err)
	var rows []json.RawMessage
	require.NoError(t, json.Unmarshal(all, &rows))
	assert.Len(t, rows, 2)

	_, err = db.Get(ctx, "products", "")
	require.NoError(t, err, "missing rows resolve to null, not an error")

	_, err = db.CallMethod(ctx, "products", "drop", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method")
}

func TestActionCallbackRoundTrip(t *testing.T) {
	host, app := newPair(t, defaultOptions())

	clicked := make(chan json.RawMessage, 1)
	button := action.NewButton(app.Registry(), "Refund", "cash")
	id := button.OnClick(func(_ context.Context, data json.RawMessage) (any, error) {
		clicked <- data
		return nil, nil
	})

	require.NoError(t, app.Send(button))

	require.Eventually(t, func() bool {
		return len(host.Actions()) == 1
	}, time.Second, 5*time.Millisecond)

	received, ok := host.Actions()[0].(*action.Button)
	require.True(t, ok)
	assert.Equal(t, "Refund", received.Label())
	assert.Equal(t, 1, host.Registry().Len(), "correlation IDs travel with the descriptor")

	require.NoError(t, host.TriggerAction(id, map[string]string{"operator": "user-1"}))
	select {
	case data := <-clicked:
		assert.JSONEq(t, `{"operator":"user-1"}`, string(data))
	case <-time.After(time.Second):
		t.Fatal("click callback never fired")
	}
}

func TestHostInitiatedRequest(t *testing.T) {
	host, app := newPair(t, defaultOptions())

	require.NoError(t, app.AddEventListener(events.NewRequestSettings(func(context.Context) (map[string]any, error) {
		return map[string]any{"enabled": true}, nil
	})))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := host.Request(ctx, wire.EventRequestSettings, nil)
	require.NoError(t, err)

	var response struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &response))
	require.Len(t, response.Results, 1)
	assert.Equal(t, true, response.Results[0]["enabled"])
}

func TestFulfilmentOrders(t *testing.T) {
	host, app := newPair(t, defaultOptions())
	ctx := context.Background()

	host.SeedOrder(events.FulfilmentOrder{
		ID:     "ord-1",
		Status: "pending",
		Items:  []events.FulfilmentItem{{ProductID: "prod-1", Quantity: 2}},
	})

	order, err := app.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", order.Status)
	require.Len(t, order.Items, 1)

	_, err = app.GetOrder(ctx, "ord-404")
	require.Error(t, err)

	require.NoError(t, app.CompleteOrder("ord-1"))
	require.Eventually(t, func() bool {
		o, ok := host.Order("ord-1")
		return ok && o.Status == "completed"
	}, time.Second, 5*time.Millisecond)

	host.SeedOrder(events.FulfilmentOrder{ID: "ord-2", Status: "pending"})
	require.NoError(t, app.CancelOrder("ord-2"))
	require.Eventually(t, func() bool {
		o, ok := host.Order("ord-2")
		return ok && o.Status == "cancelled"
	}, time.Second, 5*time.Millisecond)
}

func TestDeviceSideEffects(t *testing.T) {
	host, app := newPair(t, defaultOptions())
	ctx := context.Background()

	granted, err := app.RequestAudioPermission(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	require.NoError(t, app.PreloadAudio(ctx, "https://cdn.example.com/ding.mp3"))
	require.NoError(t, app.PlayAudio(ctx, "https://cdn.example.com/ding.mp3"))

	require.NoError(t, app.PrintReceipt("thanks for shopping"))
	require.NoError(t, app.Redirect("https://app.example.com/settings"))
	require.NoError(t, app.Download("https://app.example.com/report.csv"))

	require.Eventually(t, func() bool {
		return len(host.Printed()) == 1 && len(host.Redirects()) == 1 && len(host.Downloads()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "thanks for shopping", host.Printed()[0])
	assert.Equal(t, "https://app.example.com/settings", host.Redirects()[0])
	assert.Equal(t, "https://app.example.com/report.csv", host.Downloads()[0])
}

func TestServerOverWebSocket(t *testing.T) {
	opts := defaultOptions()
	opts.AudioGranted = true
	server := NewServer(opts)

	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	socket, err := bridge.Dial(ctx, wsURL, nil)
	require.NoError(t, err)

	app, err := application.New(socket, ts.URL, application.Options{
		RequestTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(app.Destroy)

	require.Eventually(t, app.Ready, time.Second, 5*time.Millisecond)

	loc, err := app.GetLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reg-1", loc.RegisterID)

	granted, err := app.RequestAudioPermission(context.Background())
	require.NoError(t, err)
	assert.True(t, granted)

	require.Len(t, server.Hosts(), 1)
}
