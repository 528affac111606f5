package ports

import (
	"context"

	"github.com/lorrc/modmail-backend/internal/core/domain"
)

// TicketRegistry is the authoritative in-memory map from user identity to
// active ticket. All ticket-state mutation passes through it so the
// one-open-ticket-per-user invariant is enforced in a single place.
type TicketRegistry interface {
	// Lookup returns the user's open ticket, or nil. Pure read.
	Lookup(userID string) *domain.Ticket

	// Register inserts a new open ticket. Fails with ErrTicketConflict if
	// an open ticket already exists for that user.
	Register(ticket *domain.Ticket) error

	// Remove deletes the mapping. Idempotent: removing an absent entry is
	// a no-op.
	Remove(userID string)
}

// OpenTicketParams is the input to the lifecycle open transition.
type OpenTicketParams struct {
	User    domain.User
	Guild   domain.Guild
	Initial *domain.InboundMessage
}

// TicketLifecycle governs the none -> open -> closed state machine.
type TicketLifecycle interface {
	Open(ctx context.Context, params OpenTicketParams) (*domain.Ticket, error)
	Close(ctx context.Context, channel *domain.Channel, closedBy domain.User) error
}

// Forwarder relays messages between the two sides of a ticket.
type Forwarder interface {
	ForwardUserMessage(ctx context.Context, ticket *domain.Ticket, msg domain.InboundMessage) error
	ForwardStaffReply(ctx context.Context, channel *domain.Channel, msg domain.InboundMessage) error
}

// StoreWriter spawns fire-and-forget persistence tasks with independent
// failure handling, keeping relay latency decoupled from store latency.
// Tasks sharing a key execute in submission order, so a message append can
// never outrun the ticket insert it references.
type StoreWriter interface {
	Go(key, op string, fn func(ctx context.Context) error)
	Shutdown()
}
