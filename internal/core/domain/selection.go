package domain

import "time"

// MaxSelectionChoices caps the destinations presented in one select menu,
// the transport's hard limit per component.
const MaxSelectionChoices = 25

// PendingSelection is the transient state for a user who has messaged the
// bot but not yet chosen a destination among several eligible guilds. It is
// never persisted; it lives only for the duration of the selection
// interaction and is destroyed on choice, on expiry, or when superseded by
// a newer inbound message.
type PendingSelection struct {
	UserID      string
	Content     string
	Attachments []Attachment
	Candidates  []Guild
	ChannelID   string
	PromptID    string
	ExpiresAt   time.Time
}

// CandidateByID returns the candidate guild with the given ID, or nil when
// the chosen value was not part of the presented set.
func (p *PendingSelection) CandidateByID(guildID string) *Guild {
	for i := range p.Candidates {
		if p.Candidates[i].ID == guildID {
			return &p.Candidates[i]
		}
	}
	return nil
}
