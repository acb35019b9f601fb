package service

import "ping-me/internal/models"

// Action is a group capability checked by Authorize.
type Action string

const (
	ActionAddMember    Action = "add_member"
	ActionRemoveMember Action = "remove_member"
	ActionRemoveAdmin  Action = "remove_admin"
	ActionUpdateGroup  Action = "update_group"
	ActionReadMessages Action = "read_messages"
	ActionPostMessage  Action = "post_message"
	ActionLeave        Action = "leave"
)

// Authorize is the single capability check for group operations. The creator
// always holds admin rights and is the only one who may remove an admin.
func Authorize(group models.Group, actorID string, action Action) bool {
	if actorID == "" {
		return false
	}
	switch action {
	case ActionAddMember, ActionRemoveMember, ActionUpdateGroup:
		return group.IsCreator(actorID) || group.IsAdmin(actorID)
	case ActionRemoveAdmin:
		return group.IsCreator(actorID)
	case ActionReadMessages, ActionPostMessage, ActionLeave:
		return group.IsMember(actorID)
	default:
		return false
	}
}
