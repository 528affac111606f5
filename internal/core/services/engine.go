package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	apperrors "github.com/lorrc/modmail-backend/internal/core/errors"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// TicketChannelPrefix marks routing channels among a guild's channels.
const TicketChannelPrefix = "ticket-"

// RoutingEngine is the outermost event handler: it classifies transport
// events, serializes them per user, and keeps any single failure from
// affecting another user's routing.
type RoutingEngine struct {
	transport ports.Transport
	registry  ports.TicketRegistry
	resolver  *DestinationResolver
	forwarder ports.Forwarder
	lifecycle ports.TicketLifecycle
	logger    *slog.Logger
	locks     *userLocks
}

var _ ports.EventHandler = (*RoutingEngine)(nil)

// NewRoutingEngine wires the routing core together.
func NewRoutingEngine(
	transport ports.Transport,
	registry ports.TicketRegistry,
	resolver *DestinationResolver,
	forwarder ports.Forwarder,
	lifecycle ports.TicketLifecycle,
	logger *slog.Logger,
) *RoutingEngine {
	return &RoutingEngine{
		transport: transport,
		registry:  registry,
		resolver:  resolver,
		forwarder: forwarder,
		lifecycle: lifecycle,
		logger:    logger.With("component", "engine"),
		locks:     newUserLocks(),
	}
}

// HandleMessage processes one inbound message event. Never panics and
// never returns: all failures are contained and logged here.
func (e *RoutingEngine) HandleMessage(ctx context.Context, msg domain.InboundMessage) {
	defer e.recover("message", msg.ID)

	if msg.Author.Bot {
		return
	}

	if msg.Direct() {
		e.handleDirectMessage(ctx, msg)
		return
	}
	e.handleGuildMessage(ctx, msg)
}

func (e *RoutingEngine) handleDirectMessage(ctx context.Context, msg domain.InboundMessage) {
	userID := msg.Author.ID
	e.locks.Acquire(userID)
	defer e.locks.Release(userID)

	if ticket := e.registry.Lookup(userID); ticket != nil {
		if err := e.forwarder.ForwardUserMessage(ctx, ticket, msg); err != nil {
			e.logger.Error("user message relay failed",
				"ticket_id", ticket.ID, "user_id", userID, "error", err)
		}
		return
	}

	if e.resolver.Supersede(ctx, userID) {
		e.logger.Info("pending selection superseded", "user_id", userID)
	}

	guild, err := e.resolver.Resolve(ctx, msg.Author, msg)
	if err != nil {
		if errors.Is(err, apperrors.ErrNoEligibleDestination) {
			e.reply(ctx, userID, "You need to be in a server where I am also present to use modmail.")
			return
		}
		e.logger.Error("destination resolution failed", "user_id", userID, "error", err)
		return
	}
	if guild == nil {
		// Selection prompt issued; an interaction completes the resolution.
		return
	}

	if _, err := e.lifecycle.Open(ctx, ports.OpenTicketParams{
		User:    msg.Author,
		Guild:   *guild,
		Initial: &msg,
	}); err != nil {
		e.logger.Error("ticket open failed", "user_id", userID, "guild_id", guild.ID, "error", err)
	}
}

func (e *RoutingEngine) handleGuildMessage(ctx context.Context, msg domain.InboundMessage) {
	channel, err := e.transport.FetchChannel(ctx, msg.ChannelID)
	if err != nil {
		e.logger.Warn("failed to fetch channel for guild message",
			"channel_id", msg.ChannelID, "error", err)
		return
	}
	if !strings.HasPrefix(channel.Name, TicketChannelPrefix) || channel.Topic == "" {
		return
	}

	if err := e.forwarder.ForwardStaffReply(ctx, channel, msg); err != nil {
		e.logger.Error("staff reply relay failed", "channel_id", channel.ID, "error", err)
	}
}

// HandleInteraction processes a component activation: destination
// selection or the close protocol buttons.
func (e *RoutingEngine) HandleInteraction(ctx context.Context, it domain.Interaction) {
	defer e.recover("interaction", it.ID)

	switch it.CustomID {
	case SelectGuildCustomID:
		e.handleGuildSelection(ctx, it)
	case CloseTicketCustomID:
		e.handleCloseRequest(ctx, it)
	case ConfirmCloseCustomID:
		e.handleCloseConfirm(ctx, it)
	case CancelCloseCustomID:
		e.respond(ctx, it, domain.InteractionResponse{Content: "Ticket close cancelled.", Update: true})
	default:
		e.logger.Debug("ignoring unknown interaction", "custom_id", it.CustomID)
	}
}

func (e *RoutingEngine) handleGuildSelection(ctx context.Context, it domain.Interaction) {
	userID := it.User.ID
	e.locks.Acquire(userID)
	defer e.locks.Release(userID)

	if len(it.Values) == 0 {
		e.logger.Warn("selection interaction without a value", "user_id", userID)
		return
	}

	if e.registry.Lookup(userID) != nil {
		e.respond(ctx, it, domain.InteractionResponse{Content: "You already have an open ticket.", Update: true})
		return
	}

	selection, guild, err := e.resolver.Take(userID, it.Values[0])
	if err != nil {
		if errors.Is(err, apperrors.ErrSelectionExpired) {
			e.respond(ctx, it, domain.InteractionResponse{
				Content: "This selection has expired. Send a new message to start over.",
				Update:  true,
			})
			return
		}
		e.logger.Error("selection resolution failed", "user_id", userID, "error", err)
		return
	}

	initial := domain.InboundMessage{
		ChannelID:   selection.ChannelID,
		Author:      it.User,
		Content:     selection.Content,
		Attachments: selection.Attachments,
	}

	if _, err := e.lifecycle.Open(ctx, ports.OpenTicketParams{
		User:    it.User,
		Guild:   *guild,
		Initial: &initial,
	}); err != nil {
		e.logger.Error("ticket open failed", "user_id", userID, "guild_id", guild.ID, "error", err)
		e.respond(ctx, it, domain.InteractionResponse{
			Content: "An error occurred while creating your ticket. Please try again later.",
			Update:  true,
		})
		return
	}

	e.respond(ctx, it, domain.InteractionResponse{
		Content: "Ticket created! Staff will respond shortly.",
		Update:  true,
	})
}

func (e *RoutingEngine) handleCloseRequest(ctx context.Context, it domain.Interaction) {
	channel, err := e.transport.FetchChannel(ctx, it.ChannelID)
	if err != nil {
		e.logger.Warn("close requested in unfetchable channel", "channel_id", it.ChannelID, "error", err)
		return
	}
	if _, err := domain.ParseTopic(channel.Topic); err != nil {
		e.logger.Error("close requested in channel with unparseable topic",
			"channel_id", channel.ID, "error", err)
		return
	}

	e.respond(ctx, it, domain.InteractionResponse{
		Content: "Are you sure you want to close this ticket?",
		Buttons: []domain.Button{
			{CustomID: ConfirmCloseCustomID, Label: "Confirm Close", Style: domain.ButtonDanger},
			{CustomID: CancelCloseCustomID, Label: "Cancel", Style: domain.ButtonSecondary},
		},
		Ephemeral: true,
	})
}

func (e *RoutingEngine) handleCloseConfirm(ctx context.Context, it domain.Interaction) {
	channel, err := e.transport.FetchChannel(ctx, it.ChannelID)
	if err != nil {
		e.logger.Warn("close confirmed in unfetchable channel", "channel_id", it.ChannelID, "error", err)
		return
	}

	ref, err := domain.ParseTopic(channel.Topic)
	if err != nil {
		e.logger.Error("close confirmed in channel with unparseable topic",
			"channel_id", channel.ID, "error", err)
		return
	}

	e.locks.Acquire(ref.UserID)
	defer e.locks.Release(ref.UserID)

	// Acknowledge before teardown; the confirmation message lives in the
	// channel that is about to be deleted.
	e.respond(ctx, it, domain.InteractionResponse{Content: "Closing ticket.", Update: true})

	if err := e.lifecycle.Close(ctx, channel, it.User); err != nil {
		e.logger.Error("ticket close failed", "channel_id", channel.ID, "error", err)
	}
}

func (e *RoutingEngine) reply(ctx context.Context, userID, content string) {
	if _, err := e.transport.SendDirectMessage(ctx, userID, domain.OutboundMessage{Content: content}); err != nil {
		e.logger.Warn("failed to reply to user", "user_id", userID, "error", err)
	}
}

func (e *RoutingEngine) respond(ctx context.Context, it domain.Interaction, resp domain.InteractionResponse) {
	if err := e.transport.RespondToInteraction(ctx, it, resp); err != nil {
		e.logger.Warn("failed to respond to interaction",
			"interaction_id", it.ID, "custom_id", it.CustomID, "error", err)
	}
}

func (e *RoutingEngine) recover(kind, id string) {
	if r := recover(); r != nil {
		e.logger.Error("panic in event handler", "kind", kind, "id", id, "panic", r)
	}
}
