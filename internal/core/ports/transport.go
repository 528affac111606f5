package ports

import (
	"context"

	"github.com/lorrc/modmail-backend/internal/core/domain"
)

// Transport is the message-delivery substrate the engine consumes events
// from and sends through. The Discord adapter is the production
// implementation; tests use the mock in core/mocks.
type Transport interface {
	// MutualGuilds lists the guilds the given user shares with the bot, in
	// the transport's stable order.
	MutualGuilds(ctx context.Context, userID string) ([]domain.Guild, error)

	// FetchUser resolves a user by ID.
	FetchUser(ctx context.Context, userID string) (*domain.User, error)

	// FetchChannel resolves a channel by ID. Returns an error wrapping
	// errors.ErrChannelGone when the channel no longer exists.
	FetchChannel(ctx context.Context, channelID string) (*domain.Channel, error)

	// EnsureCategory returns the ID of the named category in the guild,
	// creating it with staff-only visibility when absent. Lookup-or-create,
	// idempotent: it never duplicates an existing category.
	EnsureCategory(ctx context.Context, guildID, name string) (string, error)

	// CreateChannel creates a text channel under the given category with
	// the given name and topic, inheriting the category's visibility.
	CreateChannel(ctx context.Context, guildID, parentID, name, topic string) (*domain.Channel, error)

	// DeleteChannel removes a channel. Deleting an already-absent channel
	// is reported as an error wrapping errors.ErrChannelGone.
	DeleteChannel(ctx context.Context, channelID string) error

	// SendChannelMessage delivers a message into a guild channel and
	// returns the created message ID.
	SendChannelMessage(ctx context.Context, channelID string, msg domain.OutboundMessage) (string, error)

	// SendDirectMessage delivers a message to a user's direct channel and
	// returns the created message ID.
	SendDirectMessage(ctx context.Context, userID string, msg domain.OutboundMessage) (string, error)

	// EditMessage replaces the content and components of a previously sent
	// message. Used to retire stale selection prompts.
	EditMessage(ctx context.Context, channelID, messageID string, msg domain.OutboundMessage) error

	// React adds a reaction emoji to a message.
	React(ctx context.Context, channelID, messageID, emoji string) error

	// RespondToInteraction acknowledges a component interaction with either
	// a reply or an update of the component's host message.
	RespondToInteraction(ctx context.Context, it domain.Interaction, resp domain.InteractionResponse) error
}

// EventHandler receives transport events. The routing engine implements
// this; the gateway adapter invokes it for every dispatched event.
type EventHandler interface {
	HandleMessage(ctx context.Context, msg domain.InboundMessage)
	HandleInteraction(ctx context.Context, it domain.Interaction)
}
