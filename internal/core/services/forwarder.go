package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	apperrors "github.com/lorrc/modmail-backend/internal/core/errors"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// Reaction emojis acknowledging a relayed source message.
const (
	AckSuccess = "✅" // white heavy check mark
	AckFailure = "❌" // cross mark
)

// MessageForwarder relays messages between a user's direct channel and the
// ticket's routing channel. It never mutates the registry except to clean
// up after a channel that disappeared outside the close protocol.
type MessageForwarder struct {
	transport ports.Transport
	registry  ports.TicketRegistry
	store     ports.TicketStore
	writer    ports.StoreWriter
	logger    *slog.Logger
}

var _ ports.Forwarder = (*MessageForwarder)(nil)

// NewMessageForwarder creates the forwarding pipeline.
func NewMessageForwarder(
	transport ports.Transport,
	registry ports.TicketRegistry,
	store ports.TicketStore,
	writer ports.StoreWriter,
	logger *slog.Logger,
) *MessageForwarder {
	return &MessageForwarder{
		transport: transport,
		registry:  registry,
		store:     store,
		writer:    writer,
		logger:    logger.With("component", "forwarder"),
	}
}

// ForwardUserMessage relays a direct message into the ticket's routing
// channel. If the channel was deleted outside the close protocol the
// registry entry is cleaned up and the user is told their ticket is gone.
func (f *MessageForwarder) ForwardUserMessage(ctx context.Context, ticket *domain.Ticket, msg domain.InboundMessage) error {
	if _, err := f.transport.FetchChannel(ctx, ticket.ChannelID); err != nil {
		if errors.Is(err, apperrors.ErrChannelGone) {
			f.registry.Remove(ticket.UserID)
			f.logger.Warn("ticket channel gone, mapping removed",
				"ticket_id", ticket.ID, "user_id", ticket.UserID, "channel_id", ticket.ChannelID)
			if _, dmErr := f.transport.SendDirectMessage(ctx, ticket.UserID, domain.OutboundMessage{
				Content: "Your ticket has been closed or the channel no longer exists.",
			}); dmErr != nil {
				f.logger.Warn("failed to notify user of lost ticket", "user_id", ticket.UserID, "error", dmErr)
			}
			return fmt.Errorf("ticket %s: %w", ticket.ID, apperrors.ErrChannelGone)
		}
		return fmt.Errorf("fetching ticket channel: %w", err)
	}

	if _, err := f.transport.SendChannelMessage(ctx, ticket.ChannelID, relayEmbed(msg, false)); err != nil {
		return apperrors.NewDeliveryError("user message relay", err)
	}

	if err := f.transport.React(ctx, msg.ChannelID, msg.ID, AckSuccess); err != nil {
		f.logger.Warn("failed to acknowledge user message", "ticket_id", ticket.ID, "error", err)
	}

	f.writer.Go(ticket.ID, "append user message", func(ctx context.Context) error {
		return f.store.AppendMessage(ctx, ports.AppendMessageParams{
			TicketID:    ticket.ID,
			AuthorID:    msg.Author.ID,
			AuthorName:  msg.Author.Tag,
			Content:     msg.Content,
			Attachments: msg.AttachmentURLs(),
			IsStaff:     false,
		})
	})

	return nil
}

// ForwardStaffReply relays a staff message from a routing channel to the
// originating user. The user identity comes from the channel topic, never
// from the registry, so replies keep working even after the active mapping
// has changed.
func (f *MessageForwarder) ForwardStaffReply(ctx context.Context, channel *domain.Channel, msg domain.InboundMessage) error {
	ref, err := domain.ParseTopic(channel.Topic)
	if err != nil {
		f.logger.Error("staff reply in channel with unparseable topic",
			"channel_id", channel.ID, "error", err)
		f.reactFailure(ctx, msg)
		return err
	}

	if _, err := f.transport.SendDirectMessage(ctx, ref.UserID, relayEmbed(msg, true)); err != nil {
		f.reactFailure(ctx, msg)
		return apperrors.NewDeliveryError("staff reply relay", err)
	}

	if err := f.transport.React(ctx, msg.ChannelID, msg.ID, AckSuccess); err != nil {
		f.logger.Warn("failed to acknowledge staff reply", "ticket_id", ref.TicketID, "error", err)
	}

	f.writer.Go(ref.TicketID, "append staff message", func(ctx context.Context) error {
		return f.store.AppendMessage(ctx, ports.AppendMessageParams{
			TicketID:    ref.TicketID,
			AuthorID:    msg.Author.ID,
			AuthorName:  msg.Author.Tag,
			Content:     msg.Content,
			Attachments: msg.AttachmentURLs(),
			IsStaff:     true,
		})
	})

	return nil
}

func (f *MessageForwarder) reactFailure(ctx context.Context, msg domain.InboundMessage) {
	if err := f.transport.React(ctx, msg.ChannelID, msg.ID, AckFailure); err != nil {
		f.logger.Warn("failed to mark staff reply as undelivered", "message_id", msg.ID, "error", err)
	}
}

// relayEmbed builds the destination-formatted copy of a source message:
// author identity, body (or the explicit no-content marker) and attachment
// references as name+URL pairs.
func relayEmbed(msg domain.InboundMessage, staff bool) domain.OutboundMessage {
	name := msg.Author.Tag
	color := domain.ColorPrimary
	if staff {
		name += " (Staff)"
		color = domain.ColorSuccess
	}

	now := time.Now().UTC()
	embed := domain.Embed{
		Author:      &domain.EmbedAuthor{Name: name, IconURL: msg.Author.AvatarURL},
		Description: msg.BodyOrMarker(),
		Color:       color,
		Timestamp:   &now,
	}

	if len(msg.Attachments) > 0 {
		lines := make([]string, len(msg.Attachments))
		for i, a := range msg.Attachments {
			lines[i] = fmt.Sprintf("[%s](%s)", a.Name, a.URL)
		}
		embed.Fields = append(embed.Fields, domain.EmbedField{
			Name:  "Attachments",
			Value: strings.Join(lines, "\n"),
		})
	}

	return domain.OutboundMessage{Embeds: []domain.Embed{embed}}
}
