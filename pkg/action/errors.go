package action

import "errors"

var (
	// ErrUnknownActionType indicates a descriptor's type tag has no
	// registered constructor.
	ErrUnknownActionType = errors.New("unknown action type")

	// ErrUnknownEventSlot indicates a callback was attached to an event
	// slot the action kind does not carry.
	ErrUnknownEventSlot = errors.New("unknown event slot")
)
