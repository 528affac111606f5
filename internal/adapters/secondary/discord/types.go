package discord

import (
	"fmt"
	"strconv"
	"time"

	"github.com/lorrc/modmail-backend/internal/core/domain"
)

// Discord's snowflake epoch, milliseconds since the Unix epoch.
const snowflakeEpoch = 1420070400000

// Channel types used by the bot.
const (
	channelTypeGuildText     = 0
	channelTypeDM            = 1
	channelTypeGuildCategory = 4
)

// Component types.
const (
	componentTypeActionRow    = 1
	componentTypeButton       = 2
	componentTypeStringSelect = 3
)

// Interaction types and callback types.
const (
	interactionTypeComponent = 3

	callbackChannelMessage = 4
	callbackUpdateMessage  = 7
)

const messageFlagEphemeral = 1 << 6

// Permission bit for viewing a channel, denied to @everyone on the ticket
// category so only staff roles see tickets.
const permissionViewChannel = 1 << 10

type wireUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
	Avatar        string `json:"avatar"`
	Bot           bool   `json:"bot"`
}

func (u wireUser) toDomain() domain.User {
	return domain.User{
		ID:        u.ID,
		Username:  u.Username,
		Tag:       u.tag(),
		AvatarURL: u.avatarURL(),
		Bot:       u.Bot,
		CreatedAt: snowflakeTime(u.ID),
	}
}

func (u wireUser) tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		if u.GlobalName != "" {
			return u.GlobalName
		}
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

func (u wireUser) avatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
}

// snowflakeTime extracts the creation instant embedded in a snowflake ID.
func snowflakeTime(id string) time.Time {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}
	}
	ms := int64(n>>22) + snowflakeEpoch
	return time.UnixMilli(ms).UTC()
}

type wireGuild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	MemberCount int    `json:"member_count"`
	Unavailable bool   `json:"unavailable"`
}

func (g wireGuild) toDomain() domain.Guild {
	iconURL := ""
	if g.Icon != "" {
		iconURL = fmt.Sprintf("https://cdn.discordapp.com/icons/%s/%s.png", g.ID, g.Icon)
	}
	return domain.Guild{
		ID:          g.ID,
		Name:        g.Name,
		IconURL:     iconURL,
		MemberCount: g.MemberCount,
	}
}

type wireChannel struct {
	ID       string `json:"id"`
	Type     int    `json:"type"`
	GuildID  string `json:"guild_id"`
	Name     string `json:"name"`
	Topic    string `json:"topic"`
	ParentID string `json:"parent_id"`
}

func (c wireChannel) toDomain() *domain.Channel {
	return &domain.Channel{
		ID:      c.ID,
		GuildID: c.GuildID,
		Name:    c.Name,
		Topic:   c.Topic,
	}
}

type wireAttachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type wireMessage struct {
	ID          string           `json:"id"`
	ChannelID   string           `json:"channel_id"`
	GuildID     string           `json:"guild_id"`
	Author      wireUser         `json:"author"`
	Content     string           `json:"content"`
	Attachments []wireAttachment `json:"attachments"`
}

func (m wireMessage) toDomain() domain.InboundMessage {
	var attachments []domain.Attachment
	for _, a := range m.Attachments {
		attachments = append(attachments, domain.Attachment{Name: a.Filename, URL: a.URL})
	}
	return domain.InboundMessage{
		ID:          m.ID,
		ChannelID:   m.ChannelID,
		GuildID:     m.GuildID,
		Author:      m.Author.toDomain(),
		Content:     m.Content,
		Attachments: attachments,
	}
}

type wireEmbedAuthor struct {
	Name    string `json:"name,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type wireEmbedFooter struct {
	Text    string `json:"text,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type wireEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type wireEmbedThumbnail struct {
	URL string `json:"url"`
}

type wireEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Author      *wireEmbedAuthor    `json:"author,omitempty"`
	Footer      *wireEmbedFooter    `json:"footer,omitempty"`
	Fields      []wireEmbedField    `json:"fields,omitempty"`
	Thumbnail   *wireEmbedThumbnail `json:"thumbnail,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

func encodeEmbed(e domain.Embed) wireEmbed {
	we := wireEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Author != nil {
		we.Author = &wireEmbedAuthor{Name: e.Author.Name, IconURL: e.Author.IconURL}
	}
	if e.Footer != nil {
		we.Footer = &wireEmbedFooter{Text: e.Footer.Text, IconURL: e.Footer.IconURL}
	}
	for _, f := range e.Fields {
		we.Fields = append(we.Fields, wireEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Thumbnail != "" {
		we.Thumbnail = &wireEmbedThumbnail{URL: e.Thumbnail}
	}
	if e.Timestamp != nil {
		we.Timestamp = e.Timestamp.Format(time.RFC3339)
	}
	return we
}

type wireEmoji struct {
	Name string `json:"name"`
}

type wireComponent struct {
	Type        int             `json:"type"`
	CustomID    string          `json:"custom_id,omitempty"`
	Label       string          `json:"label,omitempty"`
	Style       int             `json:"style,omitempty"`
	Emoji       *wireEmoji      `json:"emoji,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
	Options     []wireSelectOpt `json:"options,omitempty"`
	Components  []wireComponent `json:"components,omitempty"`
}

type wireSelectOpt struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

func encodeComponents(msg domain.OutboundMessage) []wireComponent {
	var rows []wireComponent

	if msg.SelectMenu != nil {
		options := make([]wireSelectOpt, len(msg.SelectMenu.Options))
		for i, o := range msg.SelectMenu.Options {
			options[i] = wireSelectOpt{Label: o.Label, Value: o.Value, Description: o.Description}
		}
		rows = append(rows, wireComponent{
			Type: componentTypeActionRow,
			Components: []wireComponent{{
				Type:        componentTypeStringSelect,
				CustomID:    msg.SelectMenu.CustomID,
				Placeholder: msg.SelectMenu.Placeholder,
				Options:     options,
			}},
		})
	}

	if len(msg.Buttons) > 0 {
		row := wireComponent{Type: componentTypeActionRow}
		for _, b := range msg.Buttons {
			btn := wireComponent{
				Type:     componentTypeButton,
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    int(b.Style),
			}
			if b.Emoji != "" {
				btn.Emoji = &wireEmoji{Name: b.Emoji}
			}
			row.Components = append(row.Components, btn)
		}
		rows = append(rows, row)
	}

	return rows
}

type wireMessagePayload struct {
	Content    string          `json:"content,omitempty"`
	Embeds     []wireEmbed     `json:"embeds,omitempty"`
	Components []wireComponent `json:"components"`
	Flags      int             `json:"flags,omitempty"`
}

func encodeMessage(msg domain.OutboundMessage) wireMessagePayload {
	payload := wireMessagePayload{
		Content:    msg.Content,
		Components: encodeComponents(msg),
	}
	if payload.Components == nil {
		// An explicit empty array clears components when editing.
		payload.Components = []wireComponent{}
	}
	for _, e := range msg.Embeds {
		payload.Embeds = append(payload.Embeds, encodeEmbed(e))
	}
	return payload
}

type wireInteractionData struct {
	CustomID      string   `json:"custom_id"`
	ComponentType int      `json:"component_type"`
	Values        []string `json:"values"`
}

type wireMember struct {
	User wireUser `json:"user"`
}

type wireInteraction struct {
	ID        string              `json:"id"`
	Token     string              `json:"token"`
	Type      int                 `json:"type"`
	Data      wireInteractionData `json:"data"`
	ChannelID string              `json:"channel_id"`
	GuildID   string              `json:"guild_id"`
	Member    *wireMember         `json:"member"`
	User      *wireUser           `json:"user"`
}

func (i wireInteraction) toDomain() domain.Interaction {
	var user domain.User
	if i.Member != nil {
		user = i.Member.User.toDomain()
	} else if i.User != nil {
		user = i.User.toDomain()
	}
	return domain.Interaction{
		ID:        i.ID,
		Token:     i.Token,
		CustomID:  i.Data.CustomID,
		Values:    i.Data.Values,
		ChannelID: i.ChannelID,
		GuildID:   i.GuildID,
		User:      user,
	}
}
