package models

import "time"

// Message is a chat message. Exactly one of ReceiverID and GroupID is set.
type Message struct {
	ID         string     `db:"id" json:"id"`
	SenderID   string     `db:"sender_id" json:"sender_id"`
	ReceiverID string     `db:"receiver_id" json:"receiver_id,omitempty"`
	GroupID    string     `db:"group_id" json:"group_id,omitempty"`
	Text       string     `db:"text" json:"text,omitempty"`
	Image      string     `db:"image" json:"image,omitempty"`
	Edited     bool       `db:"edited" json:"edited,omitempty"`
	EditedAt   *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// IsGroup reports whether the message belongs to a group conversation.
func (m Message) IsGroup() bool {
	return m.GroupID != ""
}

// HasValidTarget enforces the receiver XOR group rule.
func (m Message) HasValidTarget() bool {
	return (m.ReceiverID == "") != (m.GroupID == "")
}

// HasContent reports whether the message carries text or an image.
func (m Message) HasContent() bool {
	return m.Text != "" || m.Image != ""
}

// Participants returns the users who can see a direct message.
func (m Message) Participants() []string {
	if m.IsGroup() {
		return nil
	}
	return UniqueIDs([]string{m.SenderID, m.ReceiverID})
}

// ConversationFilter selects the messages of one conversation. Set GroupID
// for a group, or UserA and UserB for a direct thread.
type ConversationFilter struct {
	GroupID string
	UserA   string
	UserB   string
}

// Matches reports whether msg belongs to the filtered conversation.
func (f ConversationFilter) Matches(msg Message) bool {
	if f.GroupID != "" {
		return msg.GroupID == f.GroupID
	}
	if msg.IsGroup() {
		return false
	}
	return (msg.SenderID == f.UserA && msg.ReceiverID == f.UserB) ||
		(msg.SenderID == f.UserB && msg.ReceiverID == f.UserA)
}
