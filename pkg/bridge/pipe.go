package bridge

import (
	"sync"

	"github.com/onshopfront/embedded-go/pkg/wire"
)

// PipeEndpoint is one end of an in-process channel pair. Deliveries are
// queued and drained by a dedicated dispatch goroutine, so a handler that
// posts a message never re-enters dispatch on its own stack.
type PipeEndpoint struct {
	origin string
	source string
	parent string

	mu      sync.Mutex
	handler Handler
	peer    *PipeEndpoint

	queue  chan Message
	done   chan struct{}
	closed bool
}

const pipeQueueDepth = 64

// NewPipe connects a host endpoint and an embedded endpoint. The embedded
// endpoint reports the host as its parent; the host endpoint has no
// parent, matching a top-level context.
func NewPipe(hostOrigin, embeddedOrigin string) (host, embedded *PipeEndpoint) {
	host = newPipeEndpoint(hostOrigin, "pipe-host", "")
	embedded = newPipeEndpoint(embeddedOrigin, "pipe-embedded", "pipe-host")
	host.peer = embedded
	embedded.peer = host
	return host, embedded
}

func newPipeEndpoint(origin, source, parent string) *PipeEndpoint {
	ep := &PipeEndpoint{
		origin: origin,
		source: source,
		parent: parent,
		queue:  make(chan Message, pipeQueueDepth),
		done:   make(chan struct{}),
	}
	go ep.dispatch()
	return ep
}

func (ep *PipeEndpoint) dispatch() {
	for {
		select {
		case msg := <-ep.queue:
			ep.mu.Lock()
			fn := ep.handler
			ep.mu.Unlock()
			if fn != nil {
				fn(msg)
			}
		case <-ep.done:
			return
		}
	}
}

// Post delivers an envelope to the peer endpoint, stamped with this
// endpoint's origin and source.
func (ep *PipeEndpoint) Post(env wire.Envelope) error {
	ep.mu.Lock()
	peer := ep.peer
	closed := ep.closed
	ep.mu.Unlock()
	if closed || peer == nil {
		return ErrChannelClosed
	}
	return peer.Deliver(ep.origin, ep.source, env)
}

// Deliver injects a raw message into this endpoint's queue with arbitrary
// origin and source metadata. It models the fact that any window can
// postMessage at a frame; the bridge's acceptance predicate is what keeps
// the session safe.
func (ep *PipeEndpoint) Deliver(origin, source string, env wire.Envelope) error {
	ep.mu.Lock()
	closed := ep.closed
	ep.mu.Unlock()
	if closed {
		return ErrChannelClosed
	}
	select {
	case ep.queue <- Message{Origin: origin, Source: source, Envelope: env}:
		return nil
	case <-ep.done:
		return ErrChannelClosed
	}
}

// SetHandler installs the inbound delivery callback.
func (ep *PipeEndpoint) SetHandler(fn Handler) {
	ep.mu.Lock()
	ep.handler = fn
	ep.mu.Unlock()
}

// ParentSource returns the source identity of the parent endpoint, or
// empty for the host end.
func (ep *PipeEndpoint) ParentSource() string {
	return ep.parent
}

// Origin returns the origin this endpoint stamps on outbound messages.
func (ep *PipeEndpoint) Origin() string {
	return ep.origin
}

// Source returns this endpoint's identity.
func (ep *PipeEndpoint) Source() string {
	return ep.source
}

// Close stops the dispatch goroutine. Safe to call more than once.
func (ep *PipeEndpoint) Close() error {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.closed {
		return nil
	}
	ep.closed = true
	close(ep.done)
	return nil
}
