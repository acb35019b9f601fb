package models

// EventType names a server push.
type EventType string

const (
	EventNewMessage       EventType = "new_message"
	EventMessageUpdated   EventType = "message_updated"
	EventMessageDeleted   EventType = "message_deleted"
	EventGroupUpdated     EventType = "group_updated"
	EventRemovedFromGroup EventType = "removed_from_group"
	EventLeftGroup        EventType = "left_group"
	EventOnlineUsers      EventType = "online_users"
)

// Event is emitted over the live channel.
type Event struct {
	Type        EventType `json:"type"`
	Message     *Message  `json:"message,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	Group       *Group    `json:"group,omitempty"`
	OnlineUsers []string  `json:"online_users,omitempty"`
}

// NewMessageEvent wraps a freshly stored message.
func NewMessageEvent(msg Message) Event {
	return Event{Type: EventNewMessage, Message: &msg}
}

// MessageUpdatedEvent wraps an edited message.
func MessageUpdatedEvent(msg Message) Event {
	return Event{Type: EventMessageUpdated, Message: &msg}
}

// MessageDeletedEvent carries only the deleted id.
func MessageDeletedEvent(messageID string) Event {
	return Event{Type: EventMessageDeleted, MessageID: messageID}
}

// GroupEvent wraps a group snapshot for group_updated, removed_from_group
// and left_group.
func GroupEvent(kind EventType, group Group) Event {
	g := group.Clone()
	return Event{Type: kind, Group: &g}
}

// OnlineUsersEvent carries the presence snapshot.
func OnlineUsersEvent(userIDs []string) Event {
	return Event{Type: EventOnlineUsers, OnlineUsers: append([]string{}, userIDs...)}
}
