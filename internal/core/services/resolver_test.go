package services_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/modmail-backend/internal/core/domain"
	apperrors "github.com/lorrc/modmail-backend/internal/core/errors"
	"github.com/lorrc/modmail-backend/internal/core/mocks"
	"github.com/lorrc/modmail-backend/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGuilds(n int) []domain.Guild {
	guilds := make([]domain.Guild, n)
	for i := range guilds {
		guilds[i] = domain.Guild{
			ID:          fmt.Sprintf("guild-%d", i),
			Name:        fmt.Sprintf("Guild %d", i),
			MemberCount: 100 + i,
		}
	}
	return guilds
}

func dmMessage(userID, content string) domain.InboundMessage {
	return domain.InboundMessage{
		ID:        "msg-1",
		ChannelID: "dm-" + userID,
		Author:    domain.User{ID: userID, Username: "alice", Tag: "alice#0"},
		Content:   content,
	}
}

func TestDestinationResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	user := domain.User{ID: "user-1", Username: "alice", Tag: "alice#0"}

	t.Run("no eligible destination", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		transport.On("MutualGuilds", ctx, "user-1").Return([]domain.Guild{}, nil)

		_, err := resolver.Resolve(ctx, user, dmMessage("user-1", "help"))

		assert.ErrorIs(t, err, apperrors.ErrNoEligibleDestination)
		assert.False(t, resolver.HasPending("user-1"))
		transport.AssertExpectations(t)
	})

	t.Run("single destination resolves immediately", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		transport.On("MutualGuilds", ctx, "user-1").Return(testGuilds(1), nil)

		guild, err := resolver.Resolve(ctx, user, dmMessage("user-1", "help"))

		require.NoError(t, err)
		require.NotNil(t, guild)
		assert.Equal(t, "guild-0", guild.ID)
		assert.False(t, resolver.HasPending("user-1"))
		transport.AssertNotCalled(t, "SendChannelMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("multiple destinations prompt for a choice", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		transport.On("MutualGuilds", ctx, "user-1").Return(testGuilds(3), nil)
		transport.On("SendChannelMessage", ctx, "dm-user-1", mock.MatchedBy(func(msg domain.OutboundMessage) bool {
			return msg.SelectMenu != nil &&
				msg.SelectMenu.CustomID == services.SelectGuildCustomID &&
				len(msg.SelectMenu.Options) == 3
		})).Return("prompt-1", nil)

		guild, err := resolver.Resolve(ctx, user, dmMessage("user-1", "help"))

		require.NoError(t, err)
		assert.Nil(t, guild)
		assert.True(t, resolver.HasPending("user-1"))
		transport.AssertExpectations(t)
	})

	t.Run("candidate set capped at widget limit", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		transport.On("MutualGuilds", ctx, "user-1").Return(testGuilds(30), nil)
		transport.On("SendChannelMessage", ctx, "dm-user-1", mock.MatchedBy(func(msg domain.OutboundMessage) bool {
			return msg.SelectMenu != nil && len(msg.SelectMenu.Options) == domain.MaxSelectionChoices
		})).Return("prompt-1", nil)

		guild, err := resolver.Resolve(ctx, user, dmMessage("user-1", "help"))

		require.NoError(t, err)
		assert.Nil(t, guild)
		transport.AssertExpectations(t)
	})

	t.Run("long multibyte guild name yields a valid label", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		guilds := testGuilds(2)
		guilds[0].Name = strings.Repeat("é", 60) // 120 bytes

		transport.On("MutualGuilds", ctx, "user-1").Return(guilds, nil)
		transport.On("SendChannelMessage", ctx, "dm-user-1", mock.MatchedBy(func(msg domain.OutboundMessage) bool {
			if msg.SelectMenu == nil || len(msg.SelectMenu.Options) != 2 {
				return false
			}
			label := msg.SelectMenu.Options[0].Label
			return len(label) <= 100 && utf8.ValidString(label)
		})).Return("prompt-1", nil)

		guild, err := resolver.Resolve(ctx, user, dmMessage("user-1", "help"))

		require.NoError(t, err)
		assert.Nil(t, guild)
		transport.AssertExpectations(t)
	})

	t.Run("prompt delivery failure", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		transport.On("MutualGuilds", ctx, "user-1").Return(testGuilds(2), nil)
		transport.On("SendChannelMessage", ctx, "dm-user-1", mock.Anything).
			Return("", fmt.Errorf("api unavailable"))

		_, err := resolver.Resolve(ctx, user, dmMessage("user-1", "help"))

		assert.True(t, apperrors.IsDelivery(err))
		assert.False(t, resolver.HasPending("user-1"))
	})
}

func TestDestinationResolver_Take(t *testing.T) {
	ctx := context.Background()
	user := domain.User{ID: "user-1", Username: "alice", Tag: "alice#0"}

	pendingResolver := func(t *testing.T) (*services.DestinationResolver, *mocks.MockTransport) {
		t.Helper()
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)
		transport.On("MutualGuilds", ctx, "user-1").Return(testGuilds(3), nil)
		transport.On("SendChannelMessage", ctx, "dm-user-1", mock.Anything).Return("prompt-1", nil)
		guild, err := resolver.Resolve(ctx, user, dmMessage("user-1", "please help"))
		require.NoError(t, err)
		require.Nil(t, guild)
		return resolver, transport
	}

	t.Run("take resolves the chosen guild", func(t *testing.T) {
		resolver, _ := pendingResolver(t)

		selection, guild, err := resolver.Take("user-1", "guild-2")

		require.NoError(t, err)
		assert.Equal(t, "guild-2", guild.ID)
		assert.Equal(t, "please help", selection.Content)
		assert.Equal(t, "prompt-1", selection.PromptID)
		assert.False(t, resolver.HasPending("user-1"))
	})

	t.Run("take is single-shot", func(t *testing.T) {
		resolver, _ := pendingResolver(t)

		_, _, err := resolver.Take("user-1", "guild-0")
		require.NoError(t, err)

		_, _, err = resolver.Take("user-1", "guild-0")
		assert.ErrorIs(t, err, apperrors.ErrSelectionExpired)
	})

	t.Run("no pending selection", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		_, _, err := resolver.Take("user-1", "guild-0")
		assert.ErrorIs(t, err, apperrors.ErrSelectionExpired)
	})

	t.Run("guild outside the candidate set", func(t *testing.T) {
		resolver, _ := pendingResolver(t)

		_, _, err := resolver.Take("user-1", "guild-99")

		assert.ErrorIs(t, err, apperrors.ErrUnknownDestination)
		// The entry is consumed even when validation fails.
		assert.False(t, resolver.HasPending("user-1"))
	})
}

func TestDestinationResolver_Supersede(t *testing.T) {
	ctx := context.Background()
	user := domain.User{ID: "user-1", Username: "alice", Tag: "alice#0"}

	t.Run("retires the stale prompt", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		transport.On("MutualGuilds", ctx, "user-1").Return(testGuilds(2), nil)
		transport.On("SendChannelMessage", ctx, "dm-user-1", mock.Anything).Return("prompt-1", nil)
		transport.On("EditMessage", ctx, "dm-user-1", "prompt-1", mock.Anything).Return(nil)

		_, err := resolver.Resolve(ctx, user, dmMessage("user-1", "first"))
		require.NoError(t, err)

		assert.True(t, resolver.Supersede(ctx, "user-1"))
		assert.False(t, resolver.HasPending("user-1"))
		transport.AssertExpectations(t)
	})

	t.Run("nothing pending", func(t *testing.T) {
		transport := mocks.NewMockTransport()
		resolver := services.NewDestinationResolver(transport, testLogger(), time.Minute)

		assert.False(t, resolver.Supersede(ctx, "user-1"))
	})
}

func TestDestinationResolver_Expiry(t *testing.T) {
	ctx := context.Background()
	user := domain.User{ID: "user-1", Username: "alice", Tag: "alice#0"}

	transport := mocks.NewMockTransport()
	resolver := services.NewDestinationResolver(transport, testLogger(), 20*time.Millisecond)

	transport.On("MutualGuilds", ctx, "user-1").Return(testGuilds(2), nil)
	transport.On("SendChannelMessage", ctx, "dm-user-1", mock.Anything).Return("prompt-1", nil)
	transport.On("EditMessage", mock.Anything, "dm-user-1", "prompt-1", mock.Anything).Return(nil)

	_, err := resolver.Resolve(ctx, user, dmMessage("user-1", "help"))
	require.NoError(t, err)
	require.True(t, resolver.HasPending("user-1"))

	assert.Eventually(t, func() bool {
		return !resolver.HasPending("user-1")
	}, time.Second, 5*time.Millisecond)

	// An expired selection can no longer be taken.
	_, _, err = resolver.Take("user-1", "guild-0")
	assert.ErrorIs(t, err, apperrors.ErrSelectionExpired)
}
