package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// Helper to create a stored ticket with a unique user so tests don't collide.
func createStoredTicket(t *testing.T, ctx context.Context, store *TicketStore) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(uuid.NewString(), "guild-1", "integration test subject", time.Now())
	require.NoError(t, err)
	require.NoError(t, ticket.AssignChannel(uuid.NewString()))
	require.NoError(t, store.CreateTicket(ctx, ticket))
	return ticket
}

func TestTicketStore_CreateTicket(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	ticket := createStoredTicket(t, ctx, store)

	var (
		userID    string
		guildID   string
		channelID string
		subject   string
		status    string
	)
	err := testPool.QueryRow(ctx,
		`SELECT user_id, guild_id, channel_id, subject, status FROM modmail_tickets WHERE ticket_id = $1`,
		ticket.ID,
	).Scan(&userID, &guildID, &channelID, &subject, &status)

	require.NoError(t, err)
	assert.Equal(t, ticket.UserID, userID)
	assert.Equal(t, "guild-1", guildID)
	assert.Equal(t, ticket.ChannelID, channelID)
	assert.Equal(t, "integration test subject", subject)
	assert.Equal(t, "open", status)
}

func TestTicketStore_CreateTicket_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	ticket := createStoredTicket(t, ctx, store)

	err := store.CreateTicket(ctx, ticket)
	assert.Error(t, err)
}

func TestTicketStore_AppendMessage(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	ticket := createStoredTicket(t, ctx, store)

	t.Run("with attachments", func(t *testing.T) {
		err := store.AppendMessage(ctx, ports.AppendMessageParams{
			TicketID:    ticket.ID,
			AuthorID:    ticket.UserID,
			AuthorName:  "alice#0",
			Content:     "here is a screenshot",
			Attachments: []string{"https://cdn.example/shot.png"},
			IsStaff:     false,
		})
		require.NoError(t, err)

		var (
			content     string
			attachments []string
			isStaff     bool
		)
		err = testPool.QueryRow(ctx,
			`SELECT content, attachments, is_staff FROM modmail_messages
			 WHERE ticket_id = $1 AND author_name = 'alice#0'`,
			ticket.ID,
		).Scan(&content, &attachments, &isStaff)

		require.NoError(t, err)
		assert.Equal(t, "here is a screenshot", content)
		assert.Equal(t, []string{"https://cdn.example/shot.png"}, attachments)
		assert.False(t, isStaff)
	})

	t.Run("nil attachments stored as empty array", func(t *testing.T) {
		err := store.AppendMessage(ctx, ports.AppendMessageParams{
			TicketID:   ticket.ID,
			AuthorID:   "staff-1",
			AuthorName: "mod#0",
			Content:    "we are looking into it",
			IsStaff:    true,
		})
		require.NoError(t, err)

		var (
			attachments []string
			isStaff     bool
		)
		err = testPool.QueryRow(ctx,
			`SELECT attachments, is_staff FROM modmail_messages
			 WHERE ticket_id = $1 AND author_name = 'mod#0'`,
			ticket.ID,
		).Scan(&attachments, &isStaff)

		require.NoError(t, err)
		assert.Empty(t, attachments)
		assert.True(t, isStaff)
	})
}

func TestTicketStore_CloseTicket(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore(testPool)

	t.Run("success", func(t *testing.T) {
		ticket := createStoredTicket(t, ctx, store)

		require.NoError(t, store.CloseTicket(ctx, ticket.ID, "staff-1"))

		var (
			status   string
			closedBy *string
			closedAt *time.Time
		)
		err := testPool.QueryRow(ctx,
			`SELECT status, closed_by, closed_at FROM modmail_tickets WHERE ticket_id = $1`,
			ticket.ID,
		).Scan(&status, &closedBy, &closedAt)

		require.NoError(t, err)
		assert.Equal(t, "closed", status)
		require.NotNil(t, closedBy)
		assert.Equal(t, "staff-1", *closedBy)
		require.NotNil(t, closedAt)
		assert.WithinDuration(t, time.Now(), *closedAt, time.Minute)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		err := store.CloseTicket(ctx, "no-such-ticket", "staff-1")
		assert.ErrorContains(t, err, "no such ticket")
	})
}
