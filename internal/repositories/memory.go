package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"ping-me/internal/models"
)

// MemoryUserRepo keeps users in process memory. It backs dev mode and tests.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewMemoryUserRepo seeds the repository with users.
func NewMemoryUserRepo(users ...models.User) *MemoryUserRepo {
	r := &MemoryUserRepo{users: make(map[string]models.User)}
	for _, u := range users {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now().UTC()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *MemoryUserRepo) FindByID(ctx context.Context, userID string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepo) FindMany(ctx context.Context, userIDs []string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.User{}
	for _, id := range models.UniqueIDs(userIDs) {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	sortUsers(out)
	return out, nil
}

func (r *MemoryUserRepo) ExistsAll(ctx context.Context, userIDs []string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range userIDs {
		if _, ok := r.users[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *MemoryUserRepo) ListExcept(ctx context.Context, userID string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.User, 0, len(r.users))
	for id, u := range r.users {
		if id != userID {
			out = append(out, u)
		}
	}
	sortUsers(out)
	return out, nil
}

func (r *MemoryUserRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.users[user.ID] = user
	return user, nil
}

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName == users[j].FullName {
			return users[i].ID < users[j].ID
		}
		return users[i].FullName < users[j].FullName
	})
}

// MemoryGroupRepo keeps groups in process memory. Every read and write copies
// the document so callers never share slices with the store.
type MemoryGroupRepo struct {
	mu     sync.RWMutex
	groups map[string]models.Group
}

// NewMemoryGroupRepo constructs an empty MemoryGroupRepo.
func NewMemoryGroupRepo() *MemoryGroupRepo {
	return &MemoryGroupRepo{groups: make(map[string]models.Group)}
}

func (r *MemoryGroupRepo) FindByID(ctx context.Context, groupID string) (models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[groupID]
	if !ok {
		return models.Group{}, ErrGroupNotFound
	}
	return g.Clone(), nil
}

func (r *MemoryGroupRepo) Create(ctx context.Context, group models.Group) (models.Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	group = group.Clone()
	group.CreatedAt = now
	group.UpdatedAt = now
	if group.MessageIDs == nil {
		group.MessageIDs = []string{}
	}
	r.groups[group.ID] = group
	return group.Clone(), nil
}

func (r *MemoryGroupRepo) Save(ctx context.Context, group models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.groups[group.ID]
	if !ok {
		return ErrGroupNotFound
	}
	next := group.Clone()
	next.CreatorID = existing.CreatorID
	next.CreatedAt = existing.CreatedAt
	next.MessageIDs = existing.MessageIDs
	next.UpdatedAt = time.Now().UTC()
	r.groups[group.ID] = next
	return nil
}

func (r *MemoryGroupRepo) FindByMemberID(ctx context.Context, userID string) ([]models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Group{}
	for _, g := range r.groups {
		if g.IsMember(userID) {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *MemoryGroupRepo) AppendMessage(ctx context.Context, groupID string, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	g.MessageIDs = append(append([]string(nil), g.MessageIDs...), messageID)
	r.groups[groupID] = g
	return nil
}

func (r *MemoryGroupRepo) RemoveMessage(ctx context.Context, groupID string, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	kept := make([]string, 0, len(g.MessageIDs))
	for _, id := range g.MessageIDs {
		if id != messageID {
			kept = append(kept, id)
		}
	}
	g.MessageIDs = kept
	r.groups[groupID] = g
	return nil
}

// MemoryMessageRepo keeps messages in insertion order.
type MemoryMessageRepo struct {
	mu       sync.RWMutex
	messages []models.Message
	now      func() time.Time
}

// NewMemoryMessageRepo constructs an empty MemoryMessageRepo.
func NewMemoryMessageRepo() *MemoryMessageRepo {
	return &MemoryMessageRepo{now: func() time.Time { return time.Now().UTC() }}
}

func (r *MemoryMessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	if !msg.HasValidTarget() || !msg.HasContent() {
		return models.Message{}, ErrInvalidMessage
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now()
	}
	r.messages = append(r.messages, msg)
	return msg, nil
}

func (r *MemoryMessageRepo) FindByID(ctx context.Context, messageID string) (models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.messages {
		if m.ID == messageID {
			return m, nil
		}
	}
	return models.Message{}, ErrMessageNotFound
}

func (r *MemoryMessageRepo) DeleteByID(ctx context.Context, messageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == messageID {
			r.messages = append(r.messages[:i:i], r.messages[i+1:]...)
			return nil
		}
	}
	return ErrMessageNotFound
}

func (r *MemoryMessageRepo) Update(ctx context.Context, msg models.Message) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == msg.ID {
			m.Text = msg.Text
			m.Edited = msg.Edited
			m.EditedAt = msg.EditedAt
			r.messages[i] = m
			return m, nil
		}
	}
	return models.Message{}, ErrMessageNotFound
}

func (r *MemoryMessageRepo) FindByConversation(ctx context.Context, filter models.ConversationFilter) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.Message{}
	for _, m := range r.messages {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

var (
	_ UserRepository    = (*UserRepo)(nil)
	_ GroupRepository   = (*GroupRepo)(nil)
	_ MessageRepository = (*MessageRepo)(nil)
	_ UserRepository    = (*MemoryUserRepo)(nil)
	_ GroupRepository   = (*MemoryGroupRepo)(nil)
	_ MessageRepository = (*MemoryMessageRepo)(nil)
)
