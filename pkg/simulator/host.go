// Package simulator is a stand-in for the point-of-sale host: it answers
// the embedded application's commands over a bridge channel, owns an
// authoritative sale aggregate, and can initiate host events the way the
// real sell screen would. It exists for local development and for
// exercising the full protocol in tests.
package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/onshopfront/embedded-go/pkg/action"
	"github.com/onshopfront/embedded-go/pkg/application"
	"github.com/onshopfront/embedded-go/pkg/bridge"
	"github.com/onshopfront/embedded-go/pkg/events"
	"github.com/onshopfront/embedded-go/pkg/sale"
	"github.com/onshopfront/embedded-go/pkg/wire"
)

// Options configures a simulated host.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Location is the register context announced with READY.
	Location events.Location
	// Token is returned for token requests.
	Token string
	// Values answered for option requests; missing keys fall back to the
	// requested default.
	OptionValues map[string]any
	// CashoutTenders lists payment-method IDs that support cashout when a
	// sale is created.
	CashoutTenders []string
	// GiftCards maps known gift card codes to their check results.
	GiftCards map[string]events.GiftCardCheckResult
	// Store answers device database requests. Optional.
	Store *Store
	// AudioGranted is the answer to audio permission requests.
	AudioGranted bool
}

type pendingEmit struct {
	done chan json.RawMessage
}

// Host is the simulated point-of-sale end of the channel.
type Host struct {
	channel bridge.Channel
	store   *Store
	logger  *slog.Logger

	location       events.Location
	token          string
	optionValues   map[string]any
	cashoutTenders map[string]bool
	giftCards      map[string]events.GiftCardCheckResult
	audioGranted   bool

	registry *action.Registry

	mu        sync.Mutex
	sale      *sale.Sale
	completed []sale.Snapshot
	orders    map[string]*events.FulfilmentOrder
	actions   []action.Action
	printed   []string
	redirects []string
	downloads []string
	preloaded []string
	played    []string
	pending   map[string]pendingEmit
}

// New binds a simulated host to its end of a channel. The host answers
// commands as soon as it is constructed; the READY handshake completes
// once the embedded side announces itself.
func New(channel bridge.Channel, opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cashout := make(map[string]bool, len(opts.CashoutTenders))
	for _, id := range opts.CashoutTenders {
		cashout[id] = true
	}

	h := &Host{
		channel:        channel,
		store:          opts.Store,
		logger:         logger,
		location:       opts.Location,
		token:          opts.Token,
		optionValues:   opts.OptionValues,
		cashoutTenders: cashout,
		giftCards:      opts.GiftCards,
		audioGranted:   opts.AudioGranted,
		registry:       action.NewRegistry(),
		sale:           sale.New(),
		orders:         make(map[string]*events.FulfilmentOrder),
		pending:        make(map[string]pendingEmit),
	}
	channel.SetHandler(h.handle)
	return h
}

// Registry returns the host-side registry holding the correlation IDs of
// every action the embedded application has sent over.
func (h *Host) Registry() *action.Registry {
	return h.registry
}

// Sale returns a snapshot of the host's current sale.
func (h *Host) Sale() sale.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sale.Snapshot()
}

// CompletedSales returns the snapshots of sales that settled to zero and
// were cleared.
func (h *Host) CompletedSales() []sale.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sale.Snapshot(nil), h.completed...)
}

// Actions returns the actions received from the embedded application, in
// arrival order.
func (h *Host) Actions() []action.Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]action.Action(nil), h.actions...)
}

// Printed returns the receipt contents the application asked to print.
func (h *Host) Printed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.printed...)
}

// Redirects returns the navigation targets the application requested.
func (h *Host) Redirects() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.redirects...)
}

// Downloads returns the download URLs the application requested.
func (h *Host) Downloads() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.downloads...)
}

// SeedOrder installs a fulfilment order the host will answer lookups for.
func (h *Host) SeedOrder(order events.FulfilmentOrder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o := order
	h.orders[order.ID] = &o
}

// Order returns the host's view of a fulfilment order.
func (h *Host) Order(id string) (events.FulfilmentOrder, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.orders[id]
	if !ok {
		return events.FulfilmentOrder{}, false
	}
	return *o, true
}

// Close releases the host's channel.
func (h *Host) Close() error {
	return h.channel.Close()
}

// Emit pushes a host event to the embedded application without waiting
// for a reply.
func (h *Host) Emit(event wire.Event, payload any) error {
	data, err := wire.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return h.channel.Post(wire.Envelope{Type: string(event), Data: data})
}

// Request pushes a correlated host event and blocks until the embedded
// application responds or the context is cancelled. The returned data is
// the response payload as sent.
func (h *Host) Request(ctx context.Context, event wire.Event, payload any) (json.RawMessage, error) {
	data, err := wire.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}

	id := uuid.NewString()
	req := pendingEmit{done: make(chan json.RawMessage, 1)}
	h.mu.Lock()
	h.pending[id] = req
	h.mu.Unlock()

	if err := h.channel.Post(wire.Envelope{Type: string(event), Data: data, RequestID: id}); err != nil {
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
		return nil, err
	}

	select {
	case result := <-req.done:
		return result, nil
	case <-ctx.Done():
		h.mu.Lock()
		delete(h.pending, id)
		h.mu.Unlock()
		return nil, ctx.Err()
	}
}

// TriggerAction fires a callback on the embedded application by
// correlation ID, simulating an operator interacting with a previously
// registered action.
func (h *Host) TriggerAction(correlationID string, data any) error {
	payload := map[string]any{"id": correlationID, "data": data}
	raw, err := wire.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode callback: %w", err)
	}
	return h.channel.Post(wire.Envelope{Type: string(wire.EventCallback), Data: raw})
}

func (h *Host) handle(msg bridge.Message) {
	env := msg.Envelope
	switch wire.Command(env.Type) {
	case wire.CommandReady:
		h.handleReady(env)
	case wire.CommandRequestSale:
		h.respond(wire.EventResponseCurrentSale, h.Sale(), env.RequestID)
	case wire.CommandSaleUpdate:
		h.handleSaleUpdate(env)
	case wire.CommandCreateSale:
		h.handleCreateSale(env)
	case wire.CommandRequestLocation:
		h.respond(wire.EventResponseLocation, h.location, env.RequestID)
	case wire.CommandRequestOption:
		h.handleOption(env)
	case wire.CommandGetToken:
		h.respond(wire.EventResponseToken, map[string]string{"token": h.token}, env.RequestID)
	case wire.CommandDatabaseRequest:
		h.handleDatabase(env)
	case wire.CommandAudioPermission:
		h.respond(wire.EventResponseAudio, map[string]bool{"granted": h.audioGranted}, env.RequestID)
	case wire.CommandAudioPreload:
		h.handleAudioURL(env, &h.preloaded)
	case wire.CommandAudioPlay:
		h.handleAudioURL(env, &h.played)
	case wire.CommandCheckGiftCard:
		h.handleGiftCard(env)
	case wire.CommandGetOrder:
		h.handleGetOrder(env)
	case wire.CommandCompleteOrder:
		h.handleOrderTransition(env, "completed")
	case wire.CommandCancelOrder:
		h.handleOrderTransition(env, "cancelled")
	case wire.CommandPrintReceipt:
		h.recordString(env, "content", &h.printed)
	case wire.CommandRedirect:
		h.recordString(env, "url", &h.redirects)
	case wire.CommandDownload:
		h.recordString(env, "url", &h.downloads)
	case wire.CommandSendAction:
		h.handleAction(env)
	case wire.CommandUnregisterActions:
		h.handleUnregister(env)
	case wire.CommandRespond:
		h.handleResponse(env)
	default:
		h.logger.Debug("unhandled command", "type", env.Type)
	}
}

func (h *Host) respond(event wire.Event, payload any, requestID string) {
	data, err := wire.Marshal(payload)
	if err != nil {
		h.logger.Error("encode response", "type", event, "error", err)
		return
	}
	if err := h.channel.Post(wire.Envelope{Type: string(event), Data: data, RequestID: requestID}); err != nil {
		h.logger.Error("post response", "type", event, "error", err)
	}
}

func (h *Host) respondError(event wire.Event, requestID string, err error) {
	h.respond(event, map[string]string{"error": err.Error()}, requestID)
}

func (h *Host) handleReady(env wire.Envelope) {
	if len(env.Data) > 0 {
		h.logger.Warn("ready carried data; ignoring", "data", string(env.Data))
	}
	h.respond(wire.EventReady, h.location, "")
}

func (h *Host) handleSaleUpdate(env wire.Envelope) {
	var update application.SaleUpdate
	if err := json.Unmarshal(env.Data, &update); err != nil {
		h.logger.Error("decode sale update", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.applySaleUpdate(update); err != nil {
		h.logger.Warn("sale update rejected", "operation", update.Operation, "error", err)
	}
}

// applySaleUpdate mutates the current sale and emits the matching
// notification. Caller holds h.mu.
func (h *Host) applySaleUpdate(update application.SaleUpdate) error {
	switch update.Operation {
	case application.OpAddProduct:
		if update.Product == nil {
			return fmt.Errorf("add_product without a product")
		}
		p := sale.ProductFromSnapshot(*update.Product)
		if err := h.sale.AddProduct(p); err != nil {
			return err
		}
		h.notify(wire.EventSaleAddProduct, events.SaleChange{Product: update.Product})

	case application.OpRemoveProduct:
		if update.Product == nil {
			return fmt.Errorf("remove_product without a product")
		}
		p := sale.ProductFromSnapshot(*update.Product)
		if err := h.sale.RemoveProduct(p); err != nil {
			return err
		}
		h.notify(wire.EventSaleRemoveProduct, events.SaleChange{Product: update.Product})

	case application.OpUpdateProduct:
		if update.Product == nil {
			return fmt.Errorf("update_product without a product")
		}
		p := sale.ProductFromSnapshot(*update.Product)
		if err := h.sale.UpdateProduct(p); err != nil {
			return err
		}
		snap := h.sale.Snapshot()
		h.notify(wire.EventSaleUpdateProducts, events.SaleChange{Products: snap.Products})

	case application.OpAddPayment:
		if update.Payment == nil {
			return fmt.Errorf("add_payment without a payment")
		}
		if err := h.sale.AddPayment(sale.PaymentFromSnapshot(*update.Payment)); err != nil {
			return err
		}
		h.settleIfPaid()

	case application.OpReversePayment:
		if update.Payment == nil {
			return fmt.Errorf("reverse_payment without a payment")
		}
		return h.sale.ReversePayment(sale.PaymentFromSnapshot(*update.Payment))

	case application.OpAddCustomer:
		if update.Customer == nil {
			return fmt.Errorf("add_customer without a customer")
		}
		if err := h.sale.AddCustomer(sale.CustomerFromSnapshot(*update.Customer)); err != nil {
			return err
		}
		h.notify(wire.EventSaleAddCustomer, events.SaleChange{Customer: update.Customer})

	case application.OpRemoveCustomer:
		if err := h.sale.RemoveCustomer(); err != nil {
			return err
		}
		h.notify(wire.EventSaleRemoveCustomer, events.SaleChange{})

	case application.OpSetNotes:
		if update.Notes == nil {
			return fmt.Errorf("set_notes without notes")
		}
		return h.sale.SetNotes(*update.Notes)

	case application.OpCancelSale:
		if err := h.sale.Cancel(); err != nil {
			return err
		}
		h.sale = sale.New()
		h.notify(wire.EventSaleClear, events.SaleChange{})

	default:
		return fmt.Errorf("unknown sale operation %q", update.Operation)
	}
	return nil
}

// settleIfPaid completes the sale when the outstanding balance reaches
// zero with product lines present, the way the sell screen closes a fully
// tendered sale. Caller holds h.mu.
func (h *Host) settleIfPaid() {
	if len(h.sale.Products()) == 0 || h.sale.Balance() > 0 {
		return
	}
	snap := h.sale.Snapshot()
	h.completed = append(h.completed, snap)
	h.sale = sale.New()

	data, err := wire.Marshal(snap)
	if err != nil {
		h.logger.Error("encode completed sale", "error", err)
		return
	}
	if err := h.channel.Post(wire.Envelope{Type: string(wire.EventSaleComplete), Data: data}); err != nil {
		h.logger.Error("post sale complete", "error", err)
	}
	h.notify(wire.EventSaleClear, events.SaleChange{})
}

// notify posts a direct sale-mutation notification. Caller holds h.mu.
func (h *Host) notify(event wire.Event, change events.SaleChange) {
	data, err := wire.Marshal(change)
	if err != nil {
		h.logger.Error("encode sale notification", "type", event, "error", err)
		return
	}
	if err := h.channel.Post(wire.Envelope{Type: string(event), Data: data}); err != nil {
		h.logger.Error("post sale notification", "type", event, "error", err)
	}
}

func (h *Host) handleCreateSale(env wire.Envelope) {
	reject := func(reason string) {
		h.respond(wire.EventResponseCreateSale, map[string]any{"success": false, "reason": reason}, env.RequestID)
	}

	var snap sale.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		reject(fmt.Sprintf("invalid sale payload: %v", err))
		return
	}
	if h.location.RegisterID == "" {
		reject("no register available")
		return
	}
	if h.location.UserID == "" {
		reject("no user signed in")
		return
	}

	var saleTotal, paidTotal float64
	for _, p := range snap.Products {
		saleTotal += p.Price
	}
	for _, p := range snap.Payments {
		if p.Status == sale.PaymentCancelled || p.Status == sale.PaymentFailed {
			continue
		}
		if p.Cashout > 0 && !h.cashoutTenders[p.ID] {
			reject(fmt.Sprintf("payment method %q does not support cashout", p.ID))
			return
		}
		paidTotal += p.Amount - p.Cashout
	}
	if paidTotal > saleTotal {
		reject(fmt.Sprintf("overpayment: %.2f tendered against %.2f", paidTotal, saleTotal))
		return
	}

	h.mu.Lock()
	h.sale = sale.FromSnapshot(snap)
	h.mu.Unlock()
	h.respond(wire.EventResponseCreateSale, map[string]any{"success": true}, env.RequestID)
}

func (h *Host) handleOption(env wire.Envelope) {
	var payload struct {
		Key     string          `json:"key"`
		Default json.RawMessage `json:"default"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.respondError(wire.EventResponseOption, env.RequestID, fmt.Errorf("invalid option request: %w", err))
		return
	}

	value := any(payload.Default)
	if v, ok := h.optionValues[payload.Key]; ok {
		value = v
	}
	h.respond(wire.EventResponseOption, map[string]any{"value": value}, env.RequestID)
}

func (h *Host) handleDatabase(env wire.Envelope) {
	if h.store == nil {
		h.respondError(wire.EventResponseDatabase, env.RequestID, fmt.Errorf("no database attached"))
		return
	}

	var payload struct {
		Table  string `json:"table"`
		Method string `json:"method"`
		Args   []any  `json:"args"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.respondError(wire.EventResponseDatabase, env.RequestID, fmt.Errorf("invalid database request: %w", err))
		return
	}

	results, err := h.store.Call(context.Background(), payload.Table, payload.Method, payload.Args)
	if err != nil {
		h.respondError(wire.EventResponseDatabase, env.RequestID, err)
		return
	}
	h.respond(wire.EventResponseDatabase, map[string]any{"results": results}, env.RequestID)
}

func (h *Host) handleAudioURL(env wire.Envelope, into *[]string) {
	var payload struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.respondError(wire.EventResponseAudio, env.RequestID, fmt.Errorf("invalid audio request: %w", err))
		return
	}
	h.mu.Lock()
	*into = append(*into, payload.URL)
	h.mu.Unlock()
	h.respond(wire.EventResponseAudio, map[string]bool{"ok": true}, env.RequestID)
}

func (h *Host) handleGiftCard(env wire.Envelope) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.respondError(wire.EventResponseGiftCard, env.RequestID, fmt.Errorf("invalid gift card request: %w", err))
		return
	}
	result, ok := h.giftCards[payload.Code]
	if !ok {
		result = events.GiftCardCheckResult{Valid: false, Message: "unknown code"}
	}
	h.respond(wire.EventResponseGiftCard, result, env.RequestID)
}

func (h *Host) handleGetOrder(env wire.Envelope) {
	var payload struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.respondError(wire.EventResponseOrder, env.RequestID, fmt.Errorf("invalid order request: %w", err))
		return
	}
	order, ok := h.Order(payload.OrderID)
	if !ok {
		h.respondError(wire.EventResponseOrder, env.RequestID, fmt.Errorf("unknown order %q", payload.OrderID))
		return
	}
	h.respond(wire.EventResponseOrder, order, env.RequestID)
}

func (h *Host) handleOrderTransition(env wire.Envelope, status string) {
	var payload struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.logger.Error("decode order transition", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if o, ok := h.orders[payload.OrderID]; ok {
		o.Status = status
	} else {
		h.logger.Warn("transition for unknown order", "order_id", payload.OrderID)
	}
}

func (h *Host) recordString(env wire.Envelope, field string, into *[]string) {
	var payload map[string]string
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.logger.Error("decode command payload", "type", env.Type, "error", err)
		return
	}
	h.mu.Lock()
	*into = append(*into, payload[field])
	h.mu.Unlock()
}

func (h *Host) handleAction(env wire.Envelope) {
	var d wire.Descriptor
	if err := json.Unmarshal(env.Data, &d); err != nil {
		h.logger.Error("decode action descriptor", "error", err)
		return
	}
	act, err := action.Deserialize(h.registry, d)
	if err != nil {
		h.logger.Error("reconstruct action", "type", d.Type, "error", err)
		return
	}
	h.mu.Lock()
	h.actions = append(h.actions, act)
	h.mu.Unlock()
}

func (h *Host) handleUnregister(env wire.Envelope) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		h.logger.Error("decode unregister request", "error", err)
		return
	}
	for _, id := range payload.IDs {
		h.registry.Remove(id)
	}
}

func (h *Host) handleResponse(env wire.Envelope) {
	h.mu.Lock()
	req, ok := h.pending[env.RequestID]
	if ok {
		delete(h.pending, env.RequestID)
	}
	h.mu.Unlock()
	if !ok {
		h.logger.Debug("response for unknown emit", "request_id", env.RequestID)
		return
	}
	req.done <- env.Data
}
