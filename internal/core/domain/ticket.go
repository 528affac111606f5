package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Pre-defined errors for domain-specific validation.
var (
	ErrUserRequired    = errors.New("ticket user is required")
	ErrGuildRequired   = errors.New("ticket guild is required")
	ErrAlreadyClosed   = errors.New("ticket is already closed")
	ErrChannelAssigned = errors.New("ticket channel is already assigned")
)

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusOpen   TicketStatus = "open"
	StatusClosed TicketStatus = "closed"
)

// Ticket binds one user to one staff-facing channel for the duration of a
// support interaction. The registry holds at most one open ticket per user.
type Ticket struct {
	ID        string
	UserID    string
	GuildID   string
	ChannelID string
	Subject   string
	Status    TicketStatus
	CreatedAt time.Time
	ClosedBy  string
	ClosedAt  *time.Time
}

// NewTicket creates an open ticket with a freshly generated ID. The channel
// is assigned later, once provisioning has succeeded.
func NewTicket(userID, guildID, subject string, now time.Time) (*Ticket, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if guildID == "" {
		return nil, ErrGuildRequired
	}

	return &Ticket{
		ID:        NewTicketID(userID, now),
		UserID:    userID,
		GuildID:   guildID,
		Subject:   TruncateSubject(subject),
		Status:    StatusOpen,
		CreatedAt: now.UTC(),
	}, nil
}

// NewTicketID derives a collision-free ticket identifier from the creation
// instant and the user identity. IDs are never reused: a closed ticket is
// terminal and a later contact produces a new ID.
func NewTicketID(userID string, now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), userID)
}

// AssignChannel sets the routing channel. The channel identity is immutable
// for the life of the ticket once set.
func (t *Ticket) AssignChannel(channelID string) error {
	if t.ChannelID != "" {
		return ErrChannelAssigned
	}
	t.ChannelID = channelID
	return nil
}

// Close transitions the ticket to its terminal state. There is no
// transition back to open.
func (t *Ticket) Close(closedBy string, at time.Time) error {
	if t.Status == StatusClosed {
		return ErrAlreadyClosed
	}
	t.Status = StatusClosed
	t.ClosedBy = closedBy
	closed := at.UTC()
	t.ClosedAt = &closed
	return nil
}

// IsOpen reports whether the ticket still accepts routed messages.
func (t *Ticket) IsOpen() bool {
	return t.Status == StatusOpen
}

const maxSubjectLen = 200

// TruncateSubject caps the stored subject at the persisted column width.
func TruncateSubject(s string) string {
	return TruncateText(s, maxSubjectLen)
}

// TruncateText caps s at max bytes without splitting a multibyte rune;
// a split rune would leave invalid UTF-8 that the store rejects.
func TruncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// TicketChannelName builds the staff channel name for a user. Discord
// channel names are lowercase and restricted to [a-z0-9-].
func TicketChannelName(username string) string {
	name := strings.ToLower("ticket-" + username)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
