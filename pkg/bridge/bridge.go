package bridge

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/onshopfront/embedded-go/pkg/wire"
)

// State is the bridge lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateAwaitingReady
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingReady:
		return "awaiting_ready"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Bridge validates and multiplexes all traffic with the host over one
// channel. After the first validated inbound message the sending source
// is bound and becomes the only accepted source for the session.
type Bridge struct {
	mu        sync.Mutex
	state     State
	channel   Channel
	origin    string
	peer      string
	listeners map[string]Handler
	order     []string
	logger    *slog.Logger
}

// New constructs a bridge over the given channel, accepting messages only
// from the origin resolved from target (a vendor key or full URL). The
// channel must be embedded under a parent; construction sends the
// readiness handshake.
func New(channel Channel, target string, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if channel.ParentSource() == "" {
		return nil, ErrNotEmbedded
	}
	origin, err := ResolveOrigin(target)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		state:     StateUninitialized,
		channel:   channel,
		origin:    origin,
		listeners: make(map[string]Handler),
		logger:    logger,
	}
	channel.SetHandler(b.receive)
	b.state = StateAwaitingReady
	if err := b.SendMessage(wire.CommandReady, nil, ""); err != nil {
		channel.SetHandler(nil)
		return nil, err
	}
	return b, nil
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Origin returns the accepted peer origin.
func (b *Bridge) Origin() string {
	return b.origin
}

// SendMessage frames and posts an outbound command. The readiness
// handshake is special-cased: it must carry no data and cannot be sent
// once a peer is bound. Every other command requires a bound peer.
func (b *Bridge) SendMessage(cmd wire.Command, data any, requestID string) error {
	b.mu.Lock()
	if b.state == StateDestroyed {
		b.mu.Unlock()
		return ErrDestroyed
	}
	if cmd == wire.CommandReady {
		if data != nil {
			b.mu.Unlock()
			return ErrReadyWithData
		}
		if b.peer != "" {
			b.mu.Unlock()
			return ErrAlreadyReady
		}
	} else if b.peer == "" {
		b.mu.Unlock()
		return ErrNotReady
	}
	b.mu.Unlock()

	raw, err := wire.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", cmd, err)
	}
	env := wire.Envelope{Type: string(cmd), Data: raw, RequestID: requestID}
	if err := b.channel.Post(env); err != nil {
		return fmt.Errorf("post %s: %w", cmd, err)
	}
	return nil
}

// AddListener registers a named inbound listener. Registering the same
// name twice is a hard error. If no peer is bound yet, the first listener
// re-triggers the readiness handshake: some hosts only notice the frame
// once a consumer starts listening.
func (b *Bridge) AddListener(name string, fn Handler) error {
	b.mu.Lock()
	if b.state == StateDestroyed {
		b.mu.Unlock()
		return ErrDestroyed
	}
	if _, exists := b.listeners[name]; exists {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateListener, name)
	}
	b.listeners[name] = fn
	b.order = append(b.order, name)
	retrigger := len(b.listeners) == 1 && b.peer == ""
	b.mu.Unlock()

	if retrigger {
		if err := b.SendMessage(wire.CommandReady, nil, ""); err != nil {
			b.logger.Debug("handshake re-trigger failed", "error", err)
		}
	}
	return nil
}

// RemoveListener unregisters a named listener. Removing an unknown name
// is a no-op.
func (b *Bridge) RemoveListener(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.listeners[name]; !exists {
		return
	}
	delete(b.listeners, name)
	for i, n := range b.order {
		if n == name {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Destroy tears the bridge down: the channel handler is removed, all
// listeners are cleared, and the channel is closed. Safe to call more
// than once.
func (b *Bridge) Destroy() {
	b.mu.Lock()
	if b.state == StateDestroyed {
		b.mu.Unlock()
		return
	}
	b.state = StateDestroyed
	b.listeners = make(map[string]Handler)
	b.order = nil
	b.mu.Unlock()

	b.channel.SetHandler(nil)
	if err := b.channel.Close(); err != nil {
		b.logger.Debug("channel close failed", "error", err)
	}
}

// receive is the channel handler. A message is accepted only when its
// origin matches, its envelope has a type, and its source passes
// first-contact binding: before a peer is bound the source must be the
// channel's parent, afterwards it must be the bound peer exactly.
func (b *Bridge) receive(msg Message) {
	b.mu.Lock()
	if b.state == StateDestroyed {
		b.mu.Unlock()
		return
	}
	if msg.Origin != b.origin {
		b.mu.Unlock()
		b.logger.Debug("dropped message from unexpected origin", "origin", msg.Origin)
		return
	}
	if msg.Envelope.Type == "" {
		b.mu.Unlock()
		return
	}
	if b.peer == "" {
		if msg.Source != b.channel.ParentSource() {
			b.mu.Unlock()
			b.logger.Debug("dropped first-contact message from non-parent source", "source", msg.Source)
			return
		}
		b.peer = msg.Source
		if b.state == StateAwaitingReady {
			b.state = StateReady
		}
	} else if msg.Source != b.peer {
		b.mu.Unlock()
		b.logger.Debug("dropped message from unbound source", "source", msg.Source)
		return
	}
	handlers := make([]Handler, 0, len(b.order))
	for _, name := range b.order {
		handlers = append(handlers, b.listeners[name])
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(msg)
	}
}
