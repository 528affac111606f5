package errors

import (
	"errors"
	"fmt"
)

// Routing errors - these represent expected routing outcomes, not bugs.
var (
	// ErrNoEligibleDestination means the user shares no guild with the bot.
	// Surfaced to the user directly; no ticket is created.
	ErrNoEligibleDestination = errors.New("no eligible destination guild")

	// ErrTicketConflict means a ticket registration raced an existing open
	// ticket for the same user. Per-user serialization should prevent this
	// from ever reaching the registry.
	ErrTicketConflict = errors.New("user already has an open ticket")

	// ErrChannelGone means the routing channel referenced by an active
	// ticket no longer exists. Triggers registry cleanup and a user notice.
	ErrChannelGone = errors.New("ticket channel no longer exists")

	// ErrSelectionExpired means an interaction arrived for a pending
	// selection that was already resolved, superseded, or timed out.
	ErrSelectionExpired = errors.New("destination selection no longer pending")

	// ErrUnknownDestination means an interaction chose a guild that was not
	// part of the presented candidate set.
	ErrUnknownDestination = errors.New("chosen destination is not a candidate")
)

// DeliveryError wraps a transport-level send failure. The triggering
// operation aborts; there is no automatic retry.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed during %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// NewDeliveryError tags a transport failure with the operation it aborted.
func NewDeliveryError(op string, err error) *DeliveryError {
	return &DeliveryError{Op: op, Err: err}
}

// IsDelivery reports whether err is (or wraps) a DeliveryError.
func IsDelivery(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
