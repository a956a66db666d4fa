package application

import "errors"

var (
	// ErrNotListenable indicates the event name does not accept listeners
	// of the requested kind.
	ErrNotListenable = errors.New("event does not accept listeners")

	// ErrListenerRegistered indicates the same listener instance is
	// already registered for the event.
	ErrListenerRegistered = errors.New("listener already registered")

	// ErrDestroyed indicates the application has been torn down; pending
	// requests are rejected with this error rather than leaked.
	ErrDestroyed = errors.New("application has been destroyed")

	// ErrRequestTimeout indicates a correlated request outlived the
	// configured timeout. With the default configuration requests never
	// time out.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrCreateSaleRejected indicates the host refused the sale-creation
	// preconditions (no register, no user, unsupported tender, or
	// overpayment).
	ErrCreateSaleRejected = errors.New("sale creation rejected by host")
)
