package domain_test

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/modmail-backend/internal/core/domain"
)

func TestNewTicket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		ticket, err := domain.NewTicket("111", "222", "hello there", now)

		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d-111", now.UnixMilli()), ticket.ID)
		assert.Equal(t, "111", ticket.UserID)
		assert.Equal(t, "222", ticket.GuildID)
		assert.Equal(t, "hello there", ticket.Subject)
		assert.Equal(t, domain.StatusOpen, ticket.Status)
		assert.True(t, ticket.IsOpen())
		assert.Empty(t, ticket.ChannelID)
		assert.Nil(t, ticket.ClosedAt)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := domain.NewTicket("", "222", "subject", now)
		assert.ErrorIs(t, err, domain.ErrUserRequired)
	})

	t.Run("missing guild", func(t *testing.T) {
		_, err := domain.NewTicket("111", "", "subject", now)
		assert.ErrorIs(t, err, domain.ErrGuildRequired)
	})

	t.Run("subject truncated", func(t *testing.T) {
		long := strings.Repeat("x", 300)
		ticket, err := domain.NewTicket("111", "222", long, now)

		require.NoError(t, err)
		assert.Len(t, ticket.Subject, 200)
	})

	t.Run("distinct instants produce distinct IDs", func(t *testing.T) {
		a, err := domain.NewTicket("111", "222", "first", now)
		require.NoError(t, err)
		b, err := domain.NewTicket("111", "222", "second", now.Add(time.Millisecond))
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestTicket_AssignChannel(t *testing.T) {
	now := time.Now()

	t.Run("assigns once", func(t *testing.T) {
		ticket, err := domain.NewTicket("111", "222", "s", now)
		require.NoError(t, err)

		require.NoError(t, ticket.AssignChannel("333"))
		assert.Equal(t, "333", ticket.ChannelID)
	})

	t.Run("channel is immutable once set", func(t *testing.T) {
		ticket, err := domain.NewTicket("111", "222", "s", now)
		require.NoError(t, err)

		require.NoError(t, ticket.AssignChannel("333"))
		err = ticket.AssignChannel("444")

		assert.ErrorIs(t, err, domain.ErrChannelAssigned)
		assert.Equal(t, "333", ticket.ChannelID)
	})
}

func TestTicket_Close(t *testing.T) {
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		ticket, err := domain.NewTicket("111", "222", "s", now)
		require.NoError(t, err)

		closedAt := now.Add(time.Hour)
		require.NoError(t, ticket.Close("staff-1", closedAt))

		assert.Equal(t, domain.StatusClosed, ticket.Status)
		assert.False(t, ticket.IsOpen())
		assert.Equal(t, "staff-1", ticket.ClosedBy)
		require.NotNil(t, ticket.ClosedAt)
		assert.Equal(t, closedAt.UTC(), *ticket.ClosedAt)
	})

	t.Run("closed is terminal", func(t *testing.T) {
		ticket, err := domain.NewTicket("111", "222", "s", now)
		require.NoError(t, err)

		require.NoError(t, ticket.Close("staff-1", now))
		err = ticket.Close("staff-2", now.Add(time.Minute))

		assert.ErrorIs(t, err, domain.ErrAlreadyClosed)
		assert.Equal(t, "staff-1", ticket.ClosedBy)
	})
}

func TestTicketChannelName(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     string
	}{
		{"plain", "alice", "ticket-alice"},
		{"uppercase folded", "Alice", "ticket-alice"},
		{"digits kept", "user42", "ticket-user42"},
		{"spaces and symbols dropped", "Cool User!", "ticket-cooluser"},
		{"unicode dropped", "Ωmega", "ticket-mega"},
		{"hyphens kept", "a-b", "ticket-a-b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.TicketChannelName(tt.username))
		})
	}
}

func TestTruncateSubject(t *testing.T) {
	assert.Equal(t, "short", domain.TruncateSubject("short"))
	assert.Equal(t, strings.Repeat("a", 200), domain.TruncateSubject(strings.Repeat("a", 201)))
	assert.Empty(t, domain.TruncateSubject(""))

	t.Run("multibyte rune spanning the cap", func(t *testing.T) {
		got := domain.TruncateSubject(strings.Repeat("a", 199) + "é")

		// Cutting inside the two-byte rune would leave a dangling lead byte.
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("a", 199), got)
	})
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under the cap", "hello", 10, "hello"},
		{"exactly the cap", "hello", 5, "hello"},
		{"ascii over the cap", "hello", 3, "hel"},
		{"rune boundary respected", "aé", 2, "a"},
		{"whole multibyte rune kept", "aé", 3, "aé"},
		{"all multibyte", strings.Repeat("猫", 5), 7, "猫猫"},
		{"zero cap", "hello", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.TruncateText(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
