package models

// TargetKind disambiguates direct threads from groups.
type TargetKind string

const (
	TargetDirect TargetKind = "direct"
	TargetGroup  TargetKind = "group"
)

// ConversationTarget is the resolved destination of a send or fetch.
// Group is populated only when Kind is TargetGroup.
type ConversationTarget struct {
	Kind  TargetKind `json:"kind"`
	ID    string     `json:"id"`
	Group *Group     `json:"group,omitempty"`
}

// Direct builds a direct target for peerID.
func Direct(peerID string) ConversationTarget {
	return ConversationTarget{Kind: TargetDirect, ID: peerID}
}

// GroupTarget builds a group target carrying the group snapshot.
func GroupTarget(group Group) ConversationTarget {
	g := group.Clone()
	return ConversationTarget{Kind: TargetGroup, ID: group.ID, Group: &g}
}

// IsGroup reports whether the target is a group.
func (t ConversationTarget) IsGroup() bool {
	return t.Kind == TargetGroup
}
