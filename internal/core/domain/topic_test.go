package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/modmail-backend/internal/core/domain"
)

func TestEncodeTopic(t *testing.T) {
	topic := domain.EncodeTopic("alice#0", "123456789", "1717243200000-123456789")
	assert.Equal(t, "Modmail ticket for alice#0 (123456789) | Ticket ID: 1717243200000-123456789", topic)
}

func TestParseTopic(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		topic := domain.EncodeTopic("alice#0", "123456789", "1717243200000-123456789")

		ref, err := domain.ParseTopic(topic)

		require.NoError(t, err)
		assert.Equal(t, "alice#0", ref.UserTag)
		assert.Equal(t, "123456789", ref.UserID)
		assert.Equal(t, "1717243200000-123456789", ref.TicketID)
	})

	t.Run("tag containing parentheses", func(t *testing.T) {
		topic := domain.EncodeTopic("weird (name)", "42", "1-42")

		ref, err := domain.ParseTopic(topic)

		require.NoError(t, err)
		assert.Equal(t, "weird (name)", ref.UserTag)
		assert.Equal(t, "42", ref.UserID)
	})

	t.Run("malformed inputs", func(t *testing.T) {
		inputs := []string{
			"",
			"General chat for the team",
			"Modmail ticket for alice#0 (abc) | Ticket ID: 1-42",
			"Modmail ticket for alice#0 (42)",
			"prefix Modmail ticket for alice#0 (42) | Ticket ID: 1-42",
		}
		for _, in := range inputs {
			_, err := domain.ParseTopic(in)
			assert.ErrorIs(t, err, domain.ErrMalformedTopic, "input %q", in)
		}
	})
}
