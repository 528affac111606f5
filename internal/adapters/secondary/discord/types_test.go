package discord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/modmail-backend/internal/core/domain"
)

func TestWireUser_Tag(t *testing.T) {
	tests := []struct {
		name string
		user wireUser
		want string
	}{
		{"legacy discriminator", wireUser{Username: "alice", Discriminator: "1234"}, "alice#1234"},
		{"migrated account with global name", wireUser{Username: "alice", Discriminator: "0", GlobalName: "Alice"}, "Alice"},
		{"migrated account without global name", wireUser{Username: "alice", Discriminator: "0"}, "alice"},
		{"missing discriminator", wireUser{Username: "alice"}, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.tag())
		})
	}
}

func TestSnowflakeTime(t *testing.T) {
	t.Run("known snowflake", func(t *testing.T) {
		// 175928847299117063 >> 22 = 41944705796 ms past the Discord epoch.
		got := snowflakeTime("175928847299117063")
		want := time.UnixMilli(snowflakeEpoch + 41944705796).UTC()
		assert.Equal(t, want, got)
	})

	t.Run("non-numeric input", func(t *testing.T) {
		assert.True(t, snowflakeTime("not-a-snowflake").IsZero())
	})
}

func TestWireUser_ToDomain(t *testing.T) {
	u := wireUser{
		ID:            "175928847299117063",
		Username:      "alice",
		Discriminator: "0",
		GlobalName:    "Alice",
		Avatar:        "abc123",
	}

	d := u.toDomain()

	assert.Equal(t, "175928847299117063", d.ID)
	assert.Equal(t, "alice", d.Username)
	assert.Equal(t, "Alice", d.Tag)
	assert.Equal(t, "https://cdn.discordapp.com/avatars/175928847299117063/abc123.png", d.AvatarURL)
	assert.False(t, d.CreatedAt.IsZero())
}

func TestEncodeMessage(t *testing.T) {
	t.Run("select menu becomes an action row", func(t *testing.T) {
		payload := encodeMessage(domain.OutboundMessage{
			SelectMenu: &domain.SelectMenu{
				CustomID:    "select_guild",
				Placeholder: "Select a server",
				Options: []domain.SelectOption{
					{Label: "Guild A", Value: "1", Description: "100 members"},
				},
			},
		})

		require.Len(t, payload.Components, 1)
		row := payload.Components[0]
		assert.Equal(t, componentTypeActionRow, row.Type)
		require.Len(t, row.Components, 1)
		menu := row.Components[0]
		assert.Equal(t, componentTypeStringSelect, menu.Type)
		assert.Equal(t, "select_guild", menu.CustomID)
		require.Len(t, menu.Options, 1)
		assert.Equal(t, "Guild A", menu.Options[0].Label)
	})

	t.Run("buttons share one action row", func(t *testing.T) {
		payload := encodeMessage(domain.OutboundMessage{
			Buttons: []domain.Button{
				{CustomID: "confirm_close", Label: "Confirm Close", Style: domain.ButtonDanger},
				{CustomID: "cancel_close", Label: "Cancel", Style: domain.ButtonSecondary},
			},
		})

		require.Len(t, payload.Components, 1)
		row := payload.Components[0]
		require.Len(t, row.Components, 2)
		assert.Equal(t, componentTypeButton, row.Components[0].Type)
		assert.Equal(t, "confirm_close", row.Components[0].CustomID)
		assert.Equal(t, int(domain.ButtonDanger), row.Components[0].Style)
	})

	t.Run("no components encodes an explicit empty array", func(t *testing.T) {
		payload := encodeMessage(domain.OutboundMessage{Content: "plain"})

		assert.NotNil(t, payload.Components)
		assert.Empty(t, payload.Components)
		assert.Equal(t, "plain", payload.Content)
	})

	t.Run("embed fields carried through", func(t *testing.T) {
		ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		payload := encodeMessage(domain.OutboundMessage{
			Embeds: []domain.Embed{{
				Title:     "Ticket Created",
				Author:    &domain.EmbedAuthor{Name: "alice#0"},
				Fields:    []domain.EmbedField{{Name: "Attachments", Value: "[a](b)"}},
				Timestamp: &ts,
			}},
		})

		require.Len(t, payload.Embeds, 1)
		e := payload.Embeds[0]
		assert.Equal(t, "Ticket Created", e.Title)
		require.NotNil(t, e.Author)
		assert.Equal(t, "alice#0", e.Author.Name)
		require.Len(t, e.Fields, 1)
		assert.Equal(t, ts.Format(time.RFC3339), e.Timestamp)
	})
}

func TestWireInteraction_ToDomain(t *testing.T) {
	t.Run("guild interaction carries the member user", func(t *testing.T) {
		it := wireInteraction{
			ID:        "it-1",
			Token:     "tok",
			Type:      interactionTypeComponent,
			Data:      wireInteractionData{CustomID: "close_ticket"},
			ChannelID: "chan-1",
			GuildID:   "guild-1",
			Member:    &wireMember{User: wireUser{ID: "staff-1", Username: "mod"}},
		}

		d := it.toDomain()

		assert.Equal(t, "close_ticket", d.CustomID)
		assert.Equal(t, "staff-1", d.User.ID)
		assert.Equal(t, "guild-1", d.GuildID)
	})

	t.Run("direct interaction carries the top-level user", func(t *testing.T) {
		it := wireInteraction{
			ID:   "it-2",
			Type: interactionTypeComponent,
			Data: wireInteractionData{CustomID: "select_guild", Values: []string{"guild-1"}},
			User: &wireUser{ID: "user-1", Username: "alice"},
		}

		d := it.toDomain()

		assert.Equal(t, "user-1", d.User.ID)
		assert.Equal(t, []string{"guild-1"}, d.Values)
	})
}
