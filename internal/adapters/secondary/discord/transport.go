package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	apperrors "github.com/lorrc/modmail-backend/internal/core/errors"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// Transport implements ports.Transport over the Discord REST API, with a
// guild cache maintained by the gateway connection.
type Transport struct {
	rest   *restClient
	logger *slog.Logger

	mu         sync.RWMutex
	botUserID  string
	guilds     map[string]domain.Guild
	guildOrder []string
	dmChannels map[string]string // user ID -> DM channel ID
}

var _ ports.Transport = (*Transport)(nil)

// NewTransport creates a transport for the given bot token.
func NewTransport(token string, rps float64, burst int, logger *slog.Logger) *Transport {
	return &Transport{
		rest:       newRESTClient(token, rps, burst),
		logger:     logger.With("component", "discord_transport"),
		guilds:     make(map[string]domain.Guild),
		dmChannels: make(map[string]string),
	}
}

// BotUserID returns the authenticated bot user's ID, set on READY.
func (t *Transport) BotUserID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.botUserID
}

func (t *Transport) setBotUser(userID string) {
	t.mu.Lock()
	t.botUserID = userID
	t.mu.Unlock()
}

// upsertGuild records a guild seen on READY or GUILD_CREATE, preserving
// first-seen order so candidate sets are stable across lookups.
func (t *Transport) upsertGuild(g domain.Guild) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.guilds[g.ID]; !ok {
		t.guildOrder = append(t.guildOrder, g.ID)
	}
	t.guilds[g.ID] = g
}

func (t *Transport) removeGuild(guildID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.guilds[guildID]; !ok {
		return
	}
	delete(t.guilds, guildID)
	for i, id := range t.guildOrder {
		if id == guildID {
			t.guildOrder = append(t.guildOrder[:i], t.guildOrder[i+1:]...)
			break
		}
	}
}

func (t *Transport) knownGuilds() []domain.Guild {
	t.mu.RLock()
	defer t.mu.RUnlock()
	guilds := make([]domain.Guild, 0, len(t.guildOrder))
	for _, id := range t.guildOrder {
		guilds = append(guilds, t.guilds[id])
	}
	return guilds
}

// MutualGuilds lists the bot's guilds the user is a member of, in the
// bot's stable first-seen guild order.
func (t *Transport) MutualGuilds(ctx context.Context, userID string) ([]domain.Guild, error) {
	var mutual []domain.Guild
	for _, guild := range t.knownGuilds() {
		member, err := t.rest.isGuildMember(ctx, guild.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("checking membership in guild %s: %w", guild.ID, err)
		}
		if member {
			mutual = append(mutual, guild)
		}
	}
	return mutual, nil
}

// FetchUser resolves a user by ID.
func (t *Transport) FetchUser(ctx context.Context, userID string) (*domain.User, error) {
	wire, err := t.rest.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user := wire.toDomain()
	return &user, nil
}

// FetchChannel resolves a channel by ID, mapping a 404 to ErrChannelGone.
func (t *Transport) FetchChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	wire, err := t.rest.getChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}

// EnsureCategory finds the named category in the guild or creates it with
// @everyone denied view access. Lookup-or-create: an existing category is
// always reused, never duplicated.
func (t *Transport) EnsureCategory(ctx context.Context, guildID, name string) (string, error) {
	channels, err := t.rest.getGuildChannels(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("listing guild channels: %w", err)
	}
	for _, ch := range channels {
		if ch.Type == channelTypeGuildCategory && strings.EqualFold(ch.Name, name) {
			return ch.ID, nil
		}
	}

	created, err := t.rest.createGuildChannel(ctx, guildID, createChannelRequest{
		Name: name,
		Type: channelTypeGuildCategory,
		PermissionOverwrites: []permissionOverwrite{{
			// The @everyone role shares the guild's ID.
			ID:   guildID,
			Type: 0,
			Deny: strconv.Itoa(permissionViewChannel),
		}},
	})
	if err != nil {
		return "", fmt.Errorf("creating category %q: %w", name, err)
	}
	return created.ID, nil
}

// CreateChannel creates a text channel under the given category.
func (t *Transport) CreateChannel(ctx context.Context, guildID, parentID, name, topic string) (*domain.Channel, error) {
	created, err := t.rest.createGuildChannel(ctx, guildID, createChannelRequest{
		Name:     name,
		Type:     channelTypeGuildText,
		Topic:    topic,
		ParentID: parentID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating channel %q: %w", name, err)
	}
	return created.toDomain(), nil
}

// DeleteChannel removes a channel, mapping a 404 to ErrChannelGone.
func (t *Transport) DeleteChannel(ctx context.Context, channelID string) error {
	return t.rest.deleteChannel(ctx, channelID)
}

// SendChannelMessage delivers a message into a channel.
func (t *Transport) SendChannelMessage(ctx context.Context, channelID string, msg domain.OutboundMessage) (string, error) {
	created, err := t.rest.createMessage(ctx, channelID, encodeMessage(msg))
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// SendDirectMessage delivers a message to a user's DM channel, creating
// (and caching) the channel on first use.
func (t *Transport) SendDirectMessage(ctx context.Context, userID string, msg domain.OutboundMessage) (string, error) {
	channelID, err := t.dmChannelFor(ctx, userID)
	if err != nil {
		return "", err
	}
	return t.SendChannelMessage(ctx, channelID, msg)
}

func (t *Transport) dmChannelFor(ctx context.Context, userID string) (string, error) {
	t.mu.RLock()
	channelID, ok := t.dmChannels[userID]
	t.mu.RUnlock()
	if ok {
		return channelID, nil
	}

	ch, err := t.rest.createDMChannel(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("opening DM channel for user %s: %w", userID, err)
	}

	t.mu.Lock()
	t.dmChannels[userID] = ch.ID
	t.mu.Unlock()
	return ch.ID, nil
}

// EditMessage replaces a previously sent message's content and components.
func (t *Transport) EditMessage(ctx context.Context, channelID, messageID string, msg domain.OutboundMessage) error {
	return t.rest.editMessage(ctx, channelID, messageID, encodeMessage(msg))
}

// React adds a reaction emoji to a message.
func (t *Transport) React(ctx context.Context, channelID, messageID, emoji string) error {
	return t.rest.createReaction(ctx, channelID, messageID, emoji)
}

// RespondToInteraction acknowledges a component interaction.
func (t *Transport) RespondToInteraction(ctx context.Context, it domain.Interaction, resp domain.InteractionResponse) error {
	payload := encodeMessage(domain.OutboundMessage{
		Content: resp.Content,
		Embeds:  resp.Embeds,
		Buttons: resp.Buttons,
	})
	if resp.Ephemeral {
		payload.Flags = messageFlagEphemeral
	}

	callbackType := callbackChannelMessage
	if resp.Update {
		callbackType = callbackUpdateMessage
	}

	err := t.rest.createInteractionResponse(ctx, it.ID, it.Token, interactionCallback{
		Type: callbackType,
		Data: payload,
	})
	if err != nil {
		return apperrors.NewDeliveryError("interaction response", err)
	}
	return nil
}
