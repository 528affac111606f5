package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	apperrors "github.com/lorrc/modmail-backend/internal/core/errors"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// Button custom IDs for the close protocol.
const (
	CloseTicketCustomID  = "close_ticket"
	ConfirmCloseCustomID = "confirm_close"
	CancelCloseCustomID  = "cancel_close"
)

// TicketLifecycle drives the none -> open -> closed state machine: channel
// provisioning on open, confirmation-gated teardown on close.
type TicketLifecycle struct {
	transport    ports.Transport
	registry     ports.TicketRegistry
	store        ports.TicketStore
	writer       ports.StoreWriter
	logger       *slog.Logger
	categoryName string
}

var _ ports.TicketLifecycle = (*TicketLifecycle)(nil)

// NewTicketLifecycle creates the lifecycle controller. categoryName is the
// per-guild grouping that holds all ticket channels.
func NewTicketLifecycle(
	transport ports.Transport,
	registry ports.TicketRegistry,
	store ports.TicketStore,
	writer ports.StoreWriter,
	logger *slog.Logger,
	categoryName string,
) *TicketLifecycle {
	if categoryName == "" {
		categoryName = "MODMAIL"
	}
	return &TicketLifecycle{
		transport:    transport,
		registry:     registry,
		store:        store,
		writer:       writer,
		logger:       logger.With("component", "lifecycle"),
		categoryName: categoryName,
	}
}

// Open provisions a routing channel in the destination guild and registers
// the ticket. Registration happens only after the channel exists, so a
// provisioning failure never leaves a half-registered ticket.
func (l *TicketLifecycle) Open(ctx context.Context, params ports.OpenTicketParams) (*domain.Ticket, error) {
	user, guild := params.User, params.Guild

	subject := ""
	if params.Initial != nil {
		subject = params.Initial.Content
	}

	ticket, err := domain.NewTicket(user.ID, guild.ID, subject, time.Now())
	if err != nil {
		return nil, err
	}

	categoryID, err := l.transport.EnsureCategory(ctx, guild.ID, l.categoryName)
	if err != nil {
		l.apologize(ctx, user.ID)
		return nil, fmt.Errorf("ensuring ticket category in guild %s: %w", guild.ID, err)
	}

	channel, err := l.transport.CreateChannel(ctx, guild.ID, categoryID,
		domain.TicketChannelName(user.Username),
		domain.EncodeTopic(user.Tag, user.ID, ticket.ID))
	if err != nil {
		l.apologize(ctx, user.ID)
		return nil, fmt.Errorf("creating ticket channel in guild %s: %w", guild.ID, err)
	}

	if err := ticket.AssignChannel(channel.ID); err != nil {
		return nil, err
	}

	if err := l.registry.Register(ticket); err != nil {
		// The channel was provisioned but the user raced us to another
		// ticket. Tear the orphan down rather than leave a dead channel.
		if delErr := l.transport.DeleteChannel(ctx, channel.ID); delErr != nil {
			l.logger.Error("failed to delete orphaned ticket channel",
				"channel_id", channel.ID, "error", delErr)
		}
		return nil, err
	}

	l.logger.Info("ticket opened",
		"ticket_id", ticket.ID, "user_id", user.ID, "guild_id", guild.ID, "channel_id", channel.ID)

	if _, err := l.transport.SendChannelMessage(ctx, channel.ID, openingNotice(user)); err != nil {
		l.logger.Warn("failed to send opening notice", "ticket_id", ticket.ID, "error", err)
	}

	if params.Initial != nil {
		if _, err := l.transport.SendChannelMessage(ctx, channel.ID, relayEmbed(*params.Initial, false)); err != nil {
			l.logger.Warn("failed to forward initial message", "ticket_id", ticket.ID, "error", err)
		}
	}

	initial := params.Initial
	l.writer.Go(ticket.ID, "create ticket", func(ctx context.Context) error {
		if err := l.store.CreateTicket(ctx, ticket); err != nil {
			return err
		}
		if initial == nil {
			return nil
		}
		return l.store.AppendMessage(ctx, ports.AppendMessageParams{
			TicketID:    ticket.ID,
			AuthorID:    initial.Author.ID,
			AuthorName:  initial.Author.Tag,
			Content:     initial.Content,
			Attachments: initial.AttachmentURLs(),
			IsStaff:     false,
		})
	})

	if _, err := l.transport.SendDirectMessage(ctx, user.ID, openConfirmation(guild)); err != nil {
		l.logger.Warn("failed to send open confirmation", "ticket_id", ticket.ID, "error", err)
	}

	return ticket, nil
}

// Close executes a confirmed close. Registry removal happens before any
// notification or teardown so a racing inbound message from the same user
// cannot be routed into a channel that is about to disappear. Failures
// after removal are logged, never retried, and never reopen the ticket.
func (l *TicketLifecycle) Close(ctx context.Context, channel *domain.Channel, closedBy domain.User) error {
	ref, err := domain.ParseTopic(channel.Topic)
	if err != nil {
		return err
	}

	l.registry.Remove(ref.UserID)

	l.logger.Info("ticket closed",
		"ticket_id", ref.TicketID, "user_id", ref.UserID, "closed_by", closedBy.ID)

	if _, err := l.transport.SendDirectMessage(ctx, ref.UserID, closeNotice()); err != nil {
		l.logger.Warn("failed to notify user of closure",
			"ticket_id", ref.TicketID, "user_id", ref.UserID, "error", err)
	}

	closerID := closedBy.ID
	l.writer.Go(ref.TicketID, "close ticket", func(ctx context.Context) error {
		return l.store.CloseTicket(ctx, ref.TicketID, closerID)
	})

	if err := l.transport.DeleteChannel(ctx, channel.ID); err != nil {
		if errors.Is(err, apperrors.ErrChannelGone) {
			// Already torn down, nothing left to do.
			return nil
		}
		l.logger.Error("failed to delete ticket channel",
			"ticket_id", ref.TicketID, "channel_id", channel.ID, "error", err)
	}

	return nil
}

func (l *TicketLifecycle) apologize(ctx context.Context, userID string) {
	if _, err := l.transport.SendDirectMessage(ctx, userID, domain.OutboundMessage{
		Content: "An error occurred while creating your ticket. Please try again later.",
	}); err != nil {
		l.logger.Warn("failed to send provisioning apology", "user_id", userID, "error", err)
	}
}

// openingNotice is the first message in a fresh ticket channel: who the
// ticket is for, how old the account is, and the close control.
func openingNotice(user domain.User) domain.OutboundMessage {
	now := time.Now().UTC()
	embed := domain.Embed{
		Title:       "New Modmail Ticket",
		Description: fmt.Sprintf("**User:** %s\n**User ID:** %s", user.Tag, user.ID),
		Color:       domain.ColorPrimary,
		Thumbnail:   user.AvatarURL,
		Timestamp:   &now,
	}
	if !user.CreatedAt.IsZero() {
		embed.Fields = append(embed.Fields, domain.EmbedField{
			Name:   "Account Created",
			Value:  fmt.Sprintf("<t:%d:R>", user.CreatedAt.Unix()),
			Inline: true,
		})
	}

	return domain.OutboundMessage{
		Embeds: []domain.Embed{embed},
		Buttons: []domain.Button{{
			CustomID: CloseTicketCustomID,
			Label:    "Close Ticket",
			Style:    domain.ButtonDanger,
			Emoji:    "🔒",
		}},
	}
}

func openConfirmation(guild domain.Guild) domain.OutboundMessage {
	return domain.OutboundMessage{
		Embeds: []domain.Embed{{
			Title:       "Ticket Created",
			Description: fmt.Sprintf("Your message has been sent to **%s**.\nStaff will respond as soon as possible.", guild.Name),
			Color:       domain.ColorSuccess,
			Footer:      &domain.EmbedFooter{Text: "Reply to this DM to add more messages"},
		}},
	}
}

func closeNotice() domain.OutboundMessage {
	now := time.Now().UTC()
	return domain.OutboundMessage{
		Embeds: []domain.Embed{{
			Title:       "Ticket Closed",
			Description: "Your ticket has been closed by staff.",
			Color:       domain.ColorError,
			Timestamp:   &now,
		}},
	}
}
