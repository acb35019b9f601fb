// Package client holds the client-side view of conversations and keeps it
// converged with the server through responses and pushed events.
package client

import (
	"context"
	"errors"
	"sort"
	"sync"

	"ping-me/internal/models"
)

var ErrNoSelection = errors.New("no conversation selected")

// Selection identifies the active conversation.
type Selection struct {
	Kind models.TargetKind
	ID   string
}

// Notifier surfaces transient errors to the user.
type Notifier func(err error)

// fetchOverlay records message changes that arrive while a selection's
// history is in flight, so the response can be merged instead of overwriting them.
type fetchOverlay struct {
	updated map[string]models.Message
	deleted map[string]struct{}
}

func newFetchOverlay() *fetchOverlay {
	return &fetchOverlay{updated: map[string]models.Message{}, deleted: map[string]struct{}{}}
}

// Store is mutated only from server responses and pushed events, never
// optimistically. All state changes happen under mu; network calls do not.
type Store struct {
	api    API
	self   string
	notify Notifier

	mu          sync.Mutex
	generation  uint64
	selected    *Selection
	activeGroup *models.Group
	messages    []models.Message
	fetching    *fetchOverlay
	groups      []models.Group
	users       []models.User
	online      map[string]struct{}
	onChange    func()
}

func NewStore(api API, selfID string, notify Notifier) *Store {
	if notify == nil {
		notify = func(error) {}
	}
	return &Store{api: api, self: selfID, notify: notify, online: map[string]struct{}{}}
}

// OnChange registers a callback run after every state change, outside the lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) Self() string { return s.self }

// Select makes sel active, clears the message list and fetches it again.
// A response that arrives after another Select is dropped.
func (s *Store) Select(ctx context.Context, sel Selection) error {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.selected = &sel
	s.messages = nil
	s.fetching = newFetchOverlay()
	s.activeGroup = nil
	if sel.Kind == models.TargetGroup {
		if i := s.groupIndex(sel.ID); i >= 0 {
			g := s.groups[i].Clone()
			s.activeGroup = &g
		}
	}
	s.mu.Unlock()
	s.changed()

	msgs, err := s.api.GetMessages(ctx, sel.ID)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	overlay := s.fetching
	s.fetching = nil
	if err != nil {
		s.mu.Unlock()
		s.notify(err)
		return err
	}
	s.messages = mergeFetched(msgs, s.messages, overlay)
	s.mu.Unlock()
	s.changed()
	return nil
}

// ClearSelection drops the active conversation.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.clearSelectionLocked()
	s.mu.Unlock()
	s.changed()
}

// ApplyEvent folds one pushed event into the local state.
func (s *Store) ApplyEvent(ev models.Event) {
	s.mu.Lock()
	switch ev.Type {
	case models.EventNewMessage:
		if ev.Message != nil && s.belongsToActive(*ev.Message) {
			s.appendMessageLocked(*ev.Message)
		}
	case models.EventMessageUpdated:
		if ev.Message != nil {
			s.replaceMessageLocked(*ev.Message)
		}
	case models.EventMessageDeleted:
		s.removeMessageLocked(ev.MessageID)
	case models.EventGroupUpdated:
		if ev.Group != nil {
			s.upsertGroupLocked(*ev.Group)
		}
	case models.EventRemovedFromGroup, models.EventLeftGroup:
		if ev.Group != nil {
			s.dropGroupLocked(ev.Group.ID)
		}
	case models.EventOnlineUsers:
		s.online = make(map[string]struct{}, len(ev.OnlineUsers))
		for _, id := range ev.OnlineUsers {
			s.online[id] = struct{}{}
		}
	}
	s.mu.Unlock()
	s.changed()
}

// Send posts to the active conversation.
func (s *Store) Send(ctx context.Context, text, image string) (models.Message, error) {
	sel, ok := s.Selection()
	if !ok {
		s.notify(ErrNoSelection)
		return models.Message{}, ErrNoSelection
	}

	msg, err := s.api.SendMessage(ctx, sel.ID, text, image)
	if err != nil {
		s.notify(err)
		return models.Message{}, err
	}

	s.mu.Lock()
	if s.belongsToActive(msg) {
		s.appendMessageLocked(msg)
	}
	s.mu.Unlock()
	s.changed()
	return msg, nil
}

func (s *Store) Edit(ctx context.Context, messageID, text string) (models.Message, error) {
	msg, err := s.api.EditMessage(ctx, messageID, text)
	if err != nil {
		s.notify(err)
		return models.Message{}, err
	}
	s.mu.Lock()
	s.replaceMessageLocked(msg)
	s.mu.Unlock()
	s.changed()
	return msg, nil
}

func (s *Store) Delete(ctx context.Context, messageID string) error {
	if err := s.api.DeleteMessage(ctx, messageID); err != nil {
		s.notify(err)
		return err
	}
	s.mu.Lock()
	s.removeMessageLocked(messageID)
	s.mu.Unlock()
	s.changed()
	return nil
}

// LoadGroups replaces the roster with the server's list.
func (s *Store) LoadGroups(ctx context.Context) error {
	groups, err := s.api.ListGroups(ctx)
	if err != nil {
		s.notify(err)
		return err
	}
	s.mu.Lock()
	s.groups = make([]models.Group, 0, len(groups))
	for _, g := range groups {
		s.groups = append(s.groups, g.Clone())
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

// LoadUsers replaces the sidebar and the online set.
func (s *Store) LoadUsers(ctx context.Context) error {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		s.notify(err)
		return err
	}
	online, err := s.api.OnlineUsers(ctx)
	if err != nil {
		s.notify(err)
		return err
	}
	s.mu.Lock()
	s.users = append([]models.User(nil), users...)
	s.online = make(map[string]struct{}, len(online))
	for _, id := range online {
		s.online[id] = struct{}{}
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Store) CreateGroup(ctx context.Context, name string, memberIDs []string, profilePic string) (models.Group, error) {
	return s.groupMutation(func() (models.Group, error) {
		return s.api.CreateGroup(ctx, name, memberIDs, profilePic)
	})
}

func (s *Store) AddMember(ctx context.Context, groupID, memberID string) (models.Group, error) {
	return s.groupMutation(func() (models.Group, error) {
		return s.api.AddMember(ctx, groupID, memberID)
	})
}

func (s *Store) RemoveMember(ctx context.Context, groupID, memberID string) (models.Group, error) {
	return s.groupMutation(func() (models.Group, error) {
		return s.api.RemoveMember(ctx, groupID, memberID)
	})
}

func (s *Store) UpdateGroup(ctx context.Context, groupID string, patch models.GroupPatch) (models.Group, error) {
	return s.groupMutation(func() (models.Group, error) {
		return s.api.UpdateGroup(ctx, groupID, patch)
	})
}

// LeaveGroup drops the group locally once the server confirms.
func (s *Store) LeaveGroup(ctx context.Context, groupID string) error {
	if _, err := s.api.LeaveGroup(ctx, groupID); err != nil {
		s.notify(err)
		return err
	}
	s.mu.Lock()
	s.dropGroupLocked(groupID)
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Store) groupMutation(call func() (models.Group, error)) (models.Group, error) {
	group, err := call()
	if err != nil {
		s.notify(err)
		return models.Group{}, err
	}
	s.mu.Lock()
	s.upsertGroupLocked(group)
	s.mu.Unlock()
	s.changed()
	return group, nil
}

// Selection returns the active conversation, if any.
func (s *Store) Selection() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return Selection{}, false
	}
	return *s.selected, true
}

// ActiveGroup returns a copy of the active group snapshot.
func (s *Store) ActiveGroup() (models.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeGroup == nil {
		return models.Group{}, false
	}
	return s.activeGroup.Clone(), true
}

func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

func (s *Store) Groups() []models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.Clone())
	}
	return out
}

func (s *Store) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.users...)
}

func (s *Store) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[userID]
	return ok
}

func (s *Store) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Store) belongsToActive(msg models.Message) bool {
	if s.selected == nil {
		return false
	}
	if s.selected.Kind == models.TargetGroup {
		return msg.GroupID == s.selected.ID
	}
	if msg.IsGroup() {
		return false
	}
	peer := s.selected.ID
	return (msg.SenderID == peer && msg.ReceiverID == s.self) ||
		(msg.SenderID == s.self && msg.ReceiverID == peer)
}

func (s *Store) appendMessageLocked(msg models.Message) {
	for _, m := range s.messages {
		if m.ID == msg.ID {
			return
		}
	}
	s.messages = append(s.messages, msg)
}

func (s *Store) replaceMessageLocked(msg models.Message) {
	if s.fetching != nil {
		if prev, ok := s.fetching.updated[msg.ID]; !ok || !editedAfter(prev, msg) {
			s.fetching.updated[msg.ID] = msg
		}
	}
	for i, m := range s.messages {
		if m.ID == msg.ID {
			s.messages[i] = msg
			return
		}
	}
}

func (s *Store) removeMessageLocked(messageID string) {
	if s.fetching != nil {
		s.fetching.deleted[messageID] = struct{}{}
		delete(s.fetching.updated, messageID)
	}
	for i, m := range s.messages {
		if m.ID == messageID {
			s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
			return
		}
	}
}

func (s *Store) groupIndex(groupID string) int {
	for i, g := range s.groups {
		if g.ID == groupID {
			return i
		}
	}
	return -1
}

// upsertGroupLocked replaces the roster entry and the active snapshot. The
// message list is left alone.
func (s *Store) upsertGroupLocked(group models.Group) {
	if !group.IsMember(s.self) {
		s.dropGroupLocked(group.ID)
		return
	}
	g := group.Clone()
	if i := s.groupIndex(g.ID); i >= 0 {
		s.groups[i] = g
	} else {
		s.groups = append([]models.Group{g}, s.groups...)
	}
	if s.selected != nil && s.selected.Kind == models.TargetGroup && s.selected.ID == g.ID {
		active := g.Clone()
		s.activeGroup = &active
	}
}

func (s *Store) dropGroupLocked(groupID string) {
	if i := s.groupIndex(groupID); i >= 0 {
		s.groups = append(s.groups[:i:i], s.groups[i+1:]...)
	}
	if s.selected != nil && s.selected.Kind == models.TargetGroup && s.selected.ID == groupID {
		s.clearSelectionLocked()
	}
}

func (s *Store) clearSelectionLocked() {
	s.generation++
	s.fetching = nil
	s.selected = nil
	s.activeGroup = nil
	s.messages = nil
}

// mergeFetched folds the messages pushed during a fetch into its result:
// ids deleted meanwhile are dropped, the newer of two versions wins, and
// messages the snapshot missed are kept.
func mergeFetched(fetched, live []models.Message, overlay *fetchOverlay) []models.Message {
	if overlay == nil {
		overlay = newFetchOverlay()
	}
	out := make([]models.Message, 0, len(fetched)+len(live))
	seen := make(map[string]int, len(fetched)+len(live))
	add := func(msg models.Message) {
		if _, gone := overlay.deleted[msg.ID]; gone {
			return
		}
		if upd, ok := overlay.updated[msg.ID]; ok && !editedAfter(msg, upd) {
			msg = upd
		}
		if i, dup := seen[msg.ID]; dup {
			if editedAfter(msg, out[i]) {
				out[i] = msg
			}
			return
		}
		seen[msg.ID] = len(out)
		out = append(out, msg)
	}
	for _, m := range fetched {
		add(m)
	}
	for _, m := range live {
		add(m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// editedAfter reports whether a carries a strictly later edit than b.
func editedAfter(a, b models.Message) bool {
	switch {
	case a.EditedAt == nil:
		return false
	case b.EditedAt == nil:
		return true
	default:
		return a.EditedAt.After(*b.EditedAt)
	}
}
