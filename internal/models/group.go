package models

import "time"

// Group represents a named multi-party conversation with role-gated membership.
type Group struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	ProfilePic string    `db:"profile_pic" json:"profile_pic,omitempty"`
	CreatorID  string    `db:"creator_id" json:"creator_id"`
	Admins     []string  `db:"-" json:"admins"`
	Members    []string  `db:"-" json:"members"`
	MessageIDs []string  `db:"-" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// GroupPatch carries the optional fields of a group update.
type GroupPatch struct {
	Name       *string `json:"name,omitempty"`
	ProfilePic *string `json:"profile_pic,omitempty"`
}

// IsMember reports whether userID belongs to the group.
func (g Group) IsMember(userID string) bool {
	return contains(g.Members, userID)
}

// IsAdmin reports whether userID is in the admin set. The creator is tracked
// separately and is not necessarily listed here.
func (g Group) IsAdmin(userID string) bool {
	return contains(g.Admins, userID)
}

// IsCreator reports whether userID founded the group.
func (g Group) IsCreator(userID string) bool {
	return userID != "" && g.CreatorID == userID
}

// Clone returns a deep copy so callers can mutate slices freely.
func (g Group) Clone() Group {
	g.Admins = append([]string(nil), g.Admins...)
	g.Members = append([]string(nil), g.Members...)
	g.MessageIDs = append([]string(nil), g.MessageIDs...)
	return g
}

// WithoutUser returns a copy with userID removed from members and admins.
func (g Group) WithoutUser(userID string) Group {
	out := g.Clone()
	out.Members = remove(out.Members, userID)
	out.Admins = remove(out.Admins, userID)
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// UniqueIDs drops empty and repeated ids while keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
