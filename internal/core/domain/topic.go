package domain

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMalformedTopic indicates a routing channel topic that does not match
// the encoding this process writes. Decoding is strict: a topic either
// parses completely or the caller gets an error, never a partial result.
var ErrMalformedTopic = errors.New("malformed ticket channel topic")

// The channel topic is the only durable pointer from a routing channel back
// to its ticket and user; it must survive a process restart and be
// recoverable by pattern match.
var topicPattern = regexp.MustCompile(`^Modmail ticket for (.+) \((\d+)\) \| Ticket ID: (\S+)$`)

// TopicRef is the decoded form of a routing channel topic.
type TopicRef struct {
	UserTag  string
	UserID   string
	TicketID string
}

// EncodeTopic renders the canonical topic string for a ticket channel.
func EncodeTopic(userTag, userID, ticketID string) string {
	return fmt.Sprintf("Modmail ticket for %s (%s) | Ticket ID: %s", userTag, userID, ticketID)
}

// ParseTopic decodes a topic previously written by EncodeTopic.
func ParseTopic(topic string) (TopicRef, error) {
	m := topicPattern.FindStringSubmatch(topic)
	if m == nil {
		return TopicRef{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	return TopicRef{UserTag: m[1], UserID: m[2], TicketID: m[3]}, nil
}
