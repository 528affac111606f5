package domain

import "time"

// NoContentMarker is forwarded in place of an empty message body so an
// attachment-only message never renders as a blank embed.
const NoContentMarker = "*No text content*"

// User is the transport's view of an end user or staff member.
type User struct {
	ID        string
	Username  string
	Tag       string
	AvatarURL string
	Bot       bool
	CreatedAt time.Time
}

// Guild is a candidate destination workspace.
type Guild struct {
	ID          string
	Name        string
	IconURL     string
	MemberCount int
}

// Channel is a transport channel. GuildID is empty for direct channels.
type Channel struct {
	ID      string
	GuildID string
	Name    string
	Topic   string
}

// Attachment references an uploaded file by name and URL. The relay carries
// references only, never the file bytes.
type Attachment struct {
	Name string
	URL  string
}

// InboundMessage is a message event delivered by the transport, either from
// a user's direct channel or from a guild channel.
type InboundMessage struct {
	ID          string
	ChannelID   string
	GuildID     string
	Author      User
	Content     string
	Attachments []Attachment
}

// Direct reports whether the message arrived on a direct channel.
func (m InboundMessage) Direct() bool {
	return m.GuildID == ""
}

// BodyOrMarker returns the message content, substituting the explicit
// no-content marker when the body is empty.
func (m InboundMessage) BodyOrMarker() string {
	if m.Content == "" {
		return NoContentMarker
	}
	return m.Content
}

// AttachmentURLs lists attachment URLs in delivery order, for persistence.
func (m InboundMessage) AttachmentURLs() []string {
	if len(m.Attachments) == 0 {
		return nil
	}
	urls := make([]string, len(m.Attachments))
	for i, a := range m.Attachments {
		urls[i] = a.URL
	}
	return urls
}
