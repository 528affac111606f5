package domain

import "time"

// Embed colors, matching the bot's established palette.
const (
	ColorPrimary = 0x5865F2
	ColorSuccess = 0x57F287
	ColorError   = 0xED4245
	ColorWarning = 0xFEE75C
)

// EmbedAuthor attributes an embed to a user.
type EmbedAuthor struct {
	Name    string
	IconURL string
}

// EmbedFooter is the small trailer line of an embed.
type EmbedFooter struct {
	Text    string
	IconURL string
}

// EmbedField is a named value block inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card. The core only fills data; rendering is the
// transport's concern.
type Embed struct {
	Title       string
	Description string
	Color       int
	Author      *EmbedAuthor
	Footer      *EmbedFooter
	Fields      []EmbedField
	Thumbnail   string
	Timestamp   *time.Time
}

// SelectOption is one entry of a select menu.
type SelectOption struct {
	Label       string
	Value       string
	Description string
}

// SelectMenu is an interactive single-choice component.
type SelectMenu struct {
	CustomID    string
	Placeholder string
	Options     []SelectOption
}

// ButtonStyle selects the visual treatment of a button.
type ButtonStyle int

const (
	ButtonPrimary   ButtonStyle = 1
	ButtonSecondary ButtonStyle = 2
	ButtonDanger    ButtonStyle = 4
)

// Button is an interactive button component.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	Emoji    string
}

// OutboundMessage is a message the core asks the transport to deliver.
// At most one of SelectMenu may be set; Buttons and SelectMenu are mutually
// exclusive rows in practice.
type OutboundMessage struct {
	Content    string
	Embeds     []Embed
	SelectMenu *SelectMenu
	Buttons    []Button
}

// Interaction is a component activation (select choice or button press)
// delivered by the transport.
type Interaction struct {
	ID        string
	Token     string
	CustomID  string
	Values    []string
	ChannelID string
	GuildID   string
	User      User
}

// InteractionResponse is the reply to an interaction: either a new message
// (optionally ephemeral) or an update of the message the component lives on.
type InteractionResponse struct {
	Content   string
	Embeds    []Embed
	Buttons   []Button
	Ephemeral bool
	Update    bool
}
