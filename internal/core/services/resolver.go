package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	apperrors "github.com/lorrc/modmail-backend/internal/core/errors"
	"github.com/lorrc/modmail-backend/internal/core/ports"
)

// SelectGuildCustomID identifies the destination select menu component.
const SelectGuildCustomID = "select_guild"

// DestinationResolver determines which guild a new ticket should be opened
// against. A single eligible guild resolves immediately; several eligible
// guilds produce a Pending Selection with a bounded wait.
type DestinationResolver struct {
	transport ports.Transport
	logger    *slog.Logger
	timeout   time.Duration

	mu       sync.Mutex
	pendings map[string]*pendingEntry
}

type pendingEntry struct {
	selection *domain.PendingSelection
	timer     *time.Timer
}

// NewDestinationResolver creates a resolver with the given selection
// timeout (zero falls back to one minute).
func NewDestinationResolver(transport ports.Transport, logger *slog.Logger, timeout time.Duration) *DestinationResolver {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &DestinationResolver{
		transport: transport,
		logger:    logger.With("component", "resolver"),
		timeout:   timeout,
		pendings:  make(map[string]*pendingEntry),
	}
}

// Resolve computes the candidate destination set for msg. It returns the
// destination guild when resolution is deterministic, nil when a selection
// prompt was issued (the interaction completes the resolution later), and
// ErrNoEligibleDestination when the user shares no guild with the bot.
func (r *DestinationResolver) Resolve(ctx context.Context, user domain.User, msg domain.InboundMessage) (*domain.Guild, error) {
	candidates, err := r.transport.MutualGuilds(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing mutual guilds: %w", err)
	}

	switch len(candidates) {
	case 0:
		return nil, apperrors.ErrNoEligibleDestination
	case 1:
		return &candidates[0], nil
	}

	if len(candidates) > domain.MaxSelectionChoices {
		candidates = candidates[:domain.MaxSelectionChoices]
	}

	promptID, err := r.transport.SendChannelMessage(ctx, msg.ChannelID, buildSelectionPrompt(candidates))
	if err != nil {
		return nil, apperrors.NewDeliveryError("selection prompt", err)
	}

	selection := &domain.PendingSelection{
		UserID:      user.ID,
		Content:     msg.Content,
		Attachments: msg.Attachments,
		Candidates:  candidates,
		ChannelID:   msg.ChannelID,
		PromptID:    promptID,
		ExpiresAt:   time.Now().Add(r.timeout),
	}

	r.mu.Lock()
	r.pendings[user.ID] = &pendingEntry{
		selection: selection,
		timer:     time.AfterFunc(r.timeout, func() { r.expire(user.ID) }),
	}
	r.mu.Unlock()

	return nil, nil
}

// Take claims the user's pending selection and resolves it to the chosen
// guild. Single-shot: the entry is discarded before the guild is validated,
// so a stale widget press can never resolve twice.
func (r *DestinationResolver) Take(userID, guildID string) (*domain.PendingSelection, *domain.Guild, error) {
	r.mu.Lock()
	entry, ok := r.pendings[userID]
	if ok {
		entry.timer.Stop()
		delete(r.pendings, userID)
	}
	r.mu.Unlock()

	if !ok {
		return nil, nil, apperrors.ErrSelectionExpired
	}

	guild := entry.selection.CandidateByID(guildID)
	if guild == nil {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownDestination, guildID)
	}
	return entry.selection, guild, nil
}

// Supersede discards the user's pending selection, if any, because a newer
// inbound message restarts resolution. The stale prompt is retired
// best-effort so it cannot look live.
func (r *DestinationResolver) Supersede(ctx context.Context, userID string) bool {
	entry := r.remove(userID)
	if entry == nil {
		return false
	}
	r.retirePrompt(ctx, entry.selection, "Superseded by your newer message.")
	return true
}

// HasPending reports whether the user currently has a selection in flight.
func (r *DestinationResolver) HasPending(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pendings[userID]
	return ok
}

func (r *DestinationResolver) remove(userID string) *pendingEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.pendings[userID]
	if !ok {
		return nil
	}
	entry.timer.Stop()
	delete(r.pendings, userID)
	return entry
}

func (r *DestinationResolver) expire(userID string) {
	entry := r.remove(userID)
	if entry == nil {
		return
	}
	r.logger.Info("selection expired", "user_id", userID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.retirePrompt(ctx, entry.selection, "Selection timed out. Send a new message to start over.")
}

func (r *DestinationResolver) retirePrompt(ctx context.Context, sel *domain.PendingSelection, notice string) {
	err := r.transport.EditMessage(ctx, sel.ChannelID, sel.PromptID, domain.OutboundMessage{Content: notice})
	if err != nil {
		r.logger.Warn("failed to retire selection prompt", "user_id", sel.UserID, "error", err)
	}
}

func buildSelectionPrompt(candidates []domain.Guild) domain.OutboundMessage {
	options := make([]domain.SelectOption, len(candidates))
	for i, g := range candidates {
		label := domain.TruncateText(g.Name, 100)
		options[i] = domain.SelectOption{
			Label:       label,
			Value:       g.ID,
			Description: fmt.Sprintf("%d members", g.MemberCount),
		}
	}

	return domain.OutboundMessage{
		Embeds: []domain.Embed{{
			Title:       "Support Request",
			Description: "Please select a server to contact:",
			Color:       domain.ColorPrimary,
		}},
		SelectMenu: &domain.SelectMenu{
			CustomID:    SelectGuildCustomID,
			Placeholder: "Select a server",
			Options:     options,
		},
	}
}
