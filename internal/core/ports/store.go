package ports

import (
	"context"

	"github.com/lorrc/modmail-backend/internal/core/domain"
)

// AppendMessageParams is one relayed message as recorded in the store.
type AppendMessageParams struct {
	TicketID    string
	AuthorID    string
	AuthorName  string
	Content     string
	Attachments []string
	IsStaff     bool
}

// TicketStore is the durable record of tickets and their history. The
// engine treats it as a write-behind log: never read on the hot path, and
// a store failure never fails or rolls back a relay that already happened.
type TicketStore interface {
	CreateTicket(ctx context.Context, ticket *domain.Ticket) error
	AppendMessage(ctx context.Context, params AppendMessageParams) error
	CloseTicket(ctx context.Context, ticketID, closedBy string) error
}
