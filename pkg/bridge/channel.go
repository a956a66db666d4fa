// Package bridge owns the message channel to the host: origin and source
// validation, the readiness handshake, outbound framing, and inbound
// dispatch to registered listeners.
package bridge

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/onshopfront/embedded-go/pkg/wire"
)

// Message is one inbound delivery from the channel, with the transport's
// trusted metadata about who sent it.
type Message struct {
	// Origin is the sender's origin as reported by the transport.
	Origin string
	// Source identifies the sending endpoint. It is stable for the
	// lifetime of the peer connection.
	Source string
	// Envelope is the decoded payload.
	Envelope wire.Envelope
}

// Handler receives inbound messages in channel delivery order.
type Handler func(Message)

// Channel is the transport the bridge runs over. Implementations must
// deliver inbound messages FIFO from a single dispatch goroutine and must
// not invoke the handler re-entrantly from Post.
type Channel interface {
	// Post delivers an envelope to the parent peer.
	Post(env wire.Envelope) error
	// SetHandler installs the inbound delivery callback, replacing any
	// previous one. A nil handler discards deliveries.
	SetHandler(fn Handler)
	// ParentSource returns the identity of the parent endpoint, or the
	// empty string when the channel is not embedded under a parent.
	ParentSource() string
	// Close tears the channel down. Safe to call more than once.
	Close() error
}

const vendorOriginSuffix = ".onshopfront.com"

// ResolveOrigin expands a vendor key or full URL into the peer origin the
// bridge will accept messages from. A single-label key expands to
// https://{key}.onshopfront.com; anything with a scheme is reduced to its
// scheme://host origin.
func ResolveOrigin(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("%w: empty target", ErrInvalidOrigin)
	}
	if !strings.Contains(target, "://") {
		if strings.ContainsAny(target, "./:") {
			return "", fmt.Errorf("%w: vendor key %q must be a single label", ErrInvalidOrigin, target)
		}
		return "https://" + target + vendorOriginSuffix, nil
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q has no scheme or host", ErrInvalidOrigin, target)
	}
	return u.Scheme + "://" + u.Host, nil
}
