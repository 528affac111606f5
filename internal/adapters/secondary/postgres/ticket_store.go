package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// TicketStore is the secondary adapter for durable ticket history. The
// routing engine writes to it asynchronously and never reads it on the hot
// path; the in-memory registry stays the source of truth for routing.
type TicketStore struct {
	pool *pgxpool.Pool
}

var _ ports.TicketStore = (*TicketStore)(nil)

// NewTicketStore creates a new ticket store backed by the given pool.
func NewTicketStore(pool *pgxpool.Pool) *TicketStore {
	return &TicketStore{pool: pool}
}

// CreateTicket records a freshly opened ticket.
func (s *TicketStore) CreateTicket(ctx context.Context, ticket *domain.Ticket) error {
	const q = `
		INSERT INTO modmail_tickets (ticket_id, user_id, guild_id, channel_id, subject, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, q,
		ticket.ID,
		ticket.UserID,
		ticket.GuildID,
		ticket.ChannelID,
		ticket.Subject,
		string(ticket.Status),
		ticket.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting ticket %s: %w", ticket.ID, err)
	}
	return nil
}

// AppendMessage records one relayed message under its ticket.
func (s *TicketStore) AppendMessage(ctx context.Context, params ports.AppendMessageParams) error {
	const q = `
		INSERT INTO modmail_messages (ticket_id, author_id, author_name, content, attachments, is_staff)
		VALUES ($1, $2, $3, $4, $5, $6)`

	attachments := params.Attachments
	if attachments == nil {
		attachments = []string{}
	}

	_, err := s.pool.Exec(ctx, q,
		params.TicketID,
		params.AuthorID,
		params.AuthorName,
		params.Content,
		attachments,
		params.IsStaff,
	)
	if err != nil {
		return fmt.Errorf("appending message to ticket %s: %w", params.TicketID, err)
	}
	return nil
}

// CloseTicket marks a ticket closed with the confirming staff identity.
func (s *TicketStore) CloseTicket(ctx context.Context, ticketID, closedBy string) error {
	const q = `
		UPDATE modmail_tickets
		SET status = 'closed', closed_at = now(), closed_by = $1
		WHERE ticket_id = $2`

	tag, err := s.pool.Exec(ctx, q, closedBy, ticketID)
	if err != nil {
		return fmt.Errorf("closing ticket %s: %w", ticketID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("closing ticket %s: no such ticket", ticketID)
	}
	return nil
}
