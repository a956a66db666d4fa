package bridge

import "errors"

var (
	// ErrNotEmbedded indicates the bridge was constructed on a channel with
	// no parent peer (a top-level context).
	ErrNotEmbedded = errors.New("bridge must be constructed inside an embedded frame")

	// ErrNotReady indicates an outbound message was attempted before the
	// readiness handshake completed.
	ErrNotReady = errors.New("bridge is not ready")

	// ErrAlreadyReady indicates the readiness handshake was sent again
	// after a peer was already bound.
	ErrAlreadyReady = errors.New("bridge is already ready")

	// ErrDuplicateListener indicates a listener name was registered twice.
	ErrDuplicateListener = errors.New("listener is already registered")

	// ErrDestroyed indicates the bridge has been torn down.
	ErrDestroyed = errors.New("bridge has been destroyed")

	// ErrReadyWithData indicates the readiness handshake was given a
	// payload; it must be sent bare.
	ErrReadyWithData = errors.New("readiness handshake cannot carry data")

	// ErrInvalidOrigin indicates the vendor key or origin URL could not be
	// resolved to a peer origin.
	ErrInvalidOrigin = errors.New("invalid peer origin")

	// ErrChannelClosed indicates the underlying channel is closed.
	ErrChannelClosed = errors.New("channel is closed")
)
