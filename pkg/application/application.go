// Package application is the facade embedding applications program
// against: it correlates request/response exchanges over the bridge,
// fans host events out to typed listeners, and exposes the host's
// capability surface as blocking calls.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onshopfront/embedded-go/pkg/action"
	"github.com/onshopfront/embedded-go/pkg/bridge"
	"github.com/onshopfront/embedded-go/pkg/database"
	"github.com/onshopfront/embedded-go/pkg/events"
	"github.com/onshopfront/embedded-go/pkg/observability"
	"github.com/onshopfront/embedded-go/pkg/wire"
)

const bridgeListenerName = "application"

// Options configures an Application.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics defaults to a no-op collector.
	Metrics observability.Metrics
	// RequestTimeout bounds every correlated request. Zero means no
	// timeout, matching host behaviour; context cancellation still
	// applies.
	RequestTimeout time.Duration
}

type pendingRequest struct {
	expect wire.Event
	done   chan outcome
}

type outcome struct {
	data json.RawMessage
	err  error
}

// saleSubscription wraps a sale handler so removal can compare by
// identity; func values themselves are not comparable.
type saleSubscription struct {
	fn events.SaleHandler
}

// Application multiplexes all host traffic for one embedded frame.
type Application struct {
	bridge   *bridge.Bridge
	registry *action.Registry
	logger   *slog.Logger
	metrics  observability.Metrics
	timeout  time.Duration

	mu            sync.Mutex
	destroyed     bool
	pending       map[string]pendingRequest
	listeners     map[wire.Event][]*events.Listener
	saleListeners map[wire.Event][]*saleSubscription
	ready         bool
	location      events.Location
	db            *database.Client

	tasks chan func()
}

// New connects an application over the given channel to the host
// identified by target (vendor key or full origin URL). The bridge
// handshake is sent during construction.
func New(channel bridge.Channel, target string, opts Options) (*Application, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	br, err := bridge.New(channel, target, logger)
	if err != nil {
		return nil, err
	}

	a := &Application{
		bridge:        br,
		registry:      action.NewRegistry(),
		logger:        logger,
		metrics:       metrics,
		timeout:       opts.RequestTimeout,
		pending:       make(map[string]pendingRequest),
		listeners:     make(map[wire.Event][]*events.Listener),
		saleListeners: make(map[wire.Event][]*saleSubscription),
		tasks:         make(chan func(), 128),
	}
	go a.runTasks()

	if err := br.AddListener(bridgeListenerName, a.dispatch); err != nil {
		a.Destroy()
		return nil, err
	}
	return a, nil
}

// Registry returns the callback registry actions should be constructed
// against.
func (a *Application) Registry() *action.Registry {
	return a.registry
}

// Ready reports whether the host has completed the readiness handshake.
func (a *Application) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ready
}

func (a *Application) runTasks() {
	for fn := range a.tasks {
		fn()
	}
}

// enqueue schedules fn on the task worker so user callbacks never run on
// the channel dispatch goroutine. A callback that issues a request and
// blocks therefore cannot re-enter dispatch on its own stack. When the
// queue is saturated fn runs on its own goroutine instead, trading
// delivery order for a dispatch loop that never blocks.
func (a *Application) enqueue(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return
	}
	select {
	case a.tasks <- fn:
	default:
		// Queue saturated; fall back to a fresh goroutine rather than
		// blocking the dispatch loop.
		go fn()
	}
}

// AddEventListener registers a typed listener. Registering more than one
// listener per event fans out; the same listener instance cannot be
// registered twice. A READY listener registered after readiness was
// observed is invoked immediately with the cached location context.
func (a *Application) AddEventListener(l *events.Listener) error {
	if !events.Listenable(l.Event()) {
		return fmt.Errorf("%w: %s", ErrNotListenable, l.Event())
	}

	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return ErrDestroyed
	}
	for _, existing := range a.listeners[l.Event()] {
		if existing == l {
			a.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrListenerRegistered, l.Event())
		}
	}
	a.listeners[l.Event()] = append(a.listeners[l.Event()], l)
	replay := l.Event() == wire.EventReady && a.ready
	location := a.location
	a.mu.Unlock()

	if replay {
		raw, err := json.Marshal(location)
		if err != nil {
			return fmt.Errorf("encode cached location: %w", err)
		}
		if _, err := l.Emit(context.Background(), raw); err != nil {
			a.logger.Debug("late READY listener failed", "error", err)
		}
	}
	return nil
}

// RemoveEventListener unregisters a typed listener. Removing a listener
// that is not registered is a no-op; an event name that never accepts
// listeners is a hard error.
func (a *Application) RemoveEventListener(l *events.Listener) error {
	if !events.Listenable(l.Event()) {
		return fmt.Errorf("%w: %s", ErrNotListenable, l.Event())
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	registered := a.listeners[l.Event()]
	for i, existing := range registered {
		if existing == l {
			a.listeners[l.Event()] = append(registered[:i], registered[i+1:]...)
			break
		}
	}
	return nil
}

// AddSaleListener registers a handler for a direct sale-mutation
// notification. These are fire-and-forget; they carry no request ID and
// produce no response. The returned func unregisters the handler; it is
// safe to call more than once.
func (a *Application) AddSaleListener(event wire.Event, fn events.SaleHandler) (func(), error) {
	if !wire.IsSaleEvent(event) {
		return nil, fmt.Errorf("%w: %s is not a sale notification", ErrNotListenable, event)
	}
	sub := &saleSubscription{fn: fn}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.destroyed {
		return nil, ErrDestroyed
	}
	a.saleListeners[event] = append(a.saleListeners[event], sub)
	return func() { a.removeSaleListener(event, sub) }, nil
}

func (a *Application) removeSaleListener(event wire.Event, sub *saleSubscription) {
	a.mu.Lock()
	defer a.mu.Unlock()
	subs := a.saleListeners[event]
	for i, s := range subs {
		if s == sub {
			a.saleListeners[event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Send serializes an action and delivers it to the host.
func (a *Application) Send(act action.Action) error {
	return a.bridge.SendMessage(wire.CommandSendAction, action.Serialize(act), "")
}

// Destroy tears down the facade: every pending request is rejected, all
// listeners and callbacks are evicted, and the bridge is destroyed. Safe
// to call more than once.
func (a *Application) Destroy() {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return
	}
	a.destroyed = true
	pending := a.pending
	a.pending = make(map[string]pendingRequest)
	a.listeners = make(map[wire.Event][]*events.Listener)
	a.saleListeners = make(map[wire.Event][]*saleSubscription)
	close(a.tasks)
	a.mu.Unlock()

	for _, req := range pending {
		req.done <- outcome{err: ErrDestroyed}
	}
	a.registry.Clear()
	a.bridge.Destroy()
}

// Request issues one correlated command and blocks until the matching
// response arrives, the context is cancelled, the configured timeout
// elapses, or the application is destroyed.
func (a *Application) Request(ctx context.Context, cmd wire.Command, expect wire.Event, payload any) (json.RawMessage, error) {
	id := uuid.NewString()
	req := pendingRequest{expect: expect, done: make(chan outcome, 1)}
	timer := observability.StartTimer(string(cmd)).WithMetrics(a.metrics)

	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return nil, ErrDestroyed
	}
	a.pending[id] = req
	a.mu.Unlock()

	if err := a.bridge.SendMessage(cmd, payload, id); err != nil {
		a.dropPending(id)
		timer.StopWithError(err)
		return nil, err
	}

	var timeout <-chan time.Time
	if a.timeout > 0 {
		timer := time.NewTimer(a.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case result := <-req.done:
		timer.StopWithError(result.err)
		return result.data, result.err
	case <-ctx.Done():
		a.dropPending(id)
		timer.StopWithError(ctx.Err())
		return nil, ctx.Err()
	case <-timeout:
		a.dropPending(id)
		err := fmt.Errorf("%w: %s", ErrRequestTimeout, cmd)
		timer.StopWithError(err)
		return nil, err
	}
}

func (a *Application) dropPending(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, id)
}

// dispatch is the bridge listener: correlated responses complete their
// pending request on this goroutine; everything else is handed to the
// task worker.
func (a *Application) dispatch(msg bridge.Message) {
	env := msg.Envelope
	event := wire.Event(env.Type)

	if env.RequestID != "" && a.completePending(event, env) {
		return
	}

	switch {
	case event == wire.EventReady:
		a.handleReady(env)
	case event == wire.EventCallback:
		a.enqueue(func() { a.handleCallback(env) })
	case wire.IsSaleEvent(event):
		a.enqueue(func() { a.handleSaleEvent(event, env) })
	default:
		a.enqueue(func() { a.emitTyped(event, env) })
	}
}

// completePending resolves a correlated response. A response whose
// request has already detached is an expected race and is dropped
// silently. Host-initiated correlated events carry a request ID too; they
// are not responses and fall through to normal dispatch.
func (a *Application) completePending(event wire.Event, env wire.Envelope) bool {
	a.mu.Lock()
	req, ok := a.pending[env.RequestID]
	if ok && req.expect != event {
		// The request ID matches but the type does not; leave the entry
		// for the real response.
		a.mu.Unlock()
		return false
	}
	if ok {
		delete(a.pending, env.RequestID)
	}
	a.mu.Unlock()

	if !ok {
		if wire.IsResponseEvent(event) {
			a.logger.Debug("orphan response dropped", "type", event, "request_id", env.RequestID)
			return true
		}
		return false
	}

	var failure struct {
		Error string `json:"error"`
	}
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &failure) == nil && failure.Error != "" {
		req.done <- outcome{err: fmt.Errorf("host error: %s", failure.Error)}
		return true
	}
	req.done <- outcome{data: env.Data}
	return true
}

func (a *Application) handleReady(env wire.Envelope) {
	var loc events.Location
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &loc); err != nil {
			a.logger.Debug("unparseable READY payload", "error", err)
		}
	}

	a.mu.Lock()
	a.ready = true
	a.location = loc
	listeners := append([]*events.Listener(nil), a.listeners[wire.EventReady]...)
	a.mu.Unlock()

	data := env.Data
	a.enqueue(func() {
		for _, l := range listeners {
			if _, err := l.Emit(context.Background(), data); err != nil {
				a.logger.Debug("READY listener failed", "error", err)
			}
		}
	})
}

func (a *Application) handleCallback(env wire.Envelope) {
	var payload struct {
		ID   string          `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		a.logger.Debug("unparseable callback event", "error", err)
		return
	}

	ctx := observability.WithCorrelationID(context.Background(), payload.ID)
	result, handled, err := a.registry.Fire(ctx, payload.ID, payload.Data)
	if err != nil {
		a.logger.DebugContext(ctx, "callback failed", "error", err)
		return
	}
	if !handled {
		// Expected lifecycle skew: the owning action is already gone.
		a.metrics.Counter(observability.MetricCallbacksUnknown, 1)
		a.logger.DebugContext(ctx, "callback for unknown correlation id")
		return
	}
	a.metrics.Counter(observability.MetricCallbacksFired, 1)
	if env.RequestID != "" {
		a.respond(env.RequestID, map[string]any{"result": result})
	}
}

func (a *Application) handleSaleEvent(event wire.Event, env wire.Envelope) {
	var change events.SaleChange
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &change); err != nil {
			a.logger.Debug("unparseable sale notification", "type", event, "error", err)
			return
		}
	}

	a.mu.Lock()
	subs := append([]*saleSubscription(nil), a.saleListeners[event]...)
	a.mu.Unlock()

	for _, sub := range subs {
		sub.fn(context.Background(), change)
	}
}

// emitTyped fans a host event out to every registered listener with
// settle-all semantics: every listener runs, individual failures are
// logged and skipped, and when the host correlated the event the
// successful results are returned to it in registration order.
func (a *Application) emitTyped(event wire.Event, env wire.Envelope) {
	a.mu.Lock()
	listeners := append([]*events.Listener(nil), a.listeners[event]...)
	a.mu.Unlock()

	if len(listeners) == 0 {
		a.logger.Debug("event with no listeners", "type", event)
	}
	a.metrics.Counter(observability.MetricEventsDispatched, 1, observability.T("type", string(event)))

	var results []any
	for _, l := range listeners {
		result, err := l.Emit(context.Background(), env.Data)
		if err != nil {
			a.logger.Debug("event listener failed", "type", event, "error", err)
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}

	if env.RequestID != "" {
		a.respond(env.RequestID, map[string]any{"results": results})
	}
}

func (a *Application) respond(requestID string, payload any) {
	if err := a.bridge.SendMessage(wire.CommandRespond, payload, requestID); err != nil {
		a.logger.Debug("response delivery failed", "request_id", requestID, "error", err)
	}
}
