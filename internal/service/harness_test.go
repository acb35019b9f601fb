package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"ping-me/internal/apperr"
	"ping-me/internal/logger"
	"ping-me/internal/media"
	"ping-me/internal/models"
	"ping-me/internal/repositories"
	"ping-me/internal/ws"
)

type recordingConn struct {
	id     string
	mu     sync.Mutex
	events []models.Event
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Enqueue(payload []byte) bool {
	var ev models.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return true
}

func (c *recordingConn) Close() {}

func (c *recordingConn) received() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

func (c *recordingConn) count(kind models.EventType) int {
	n := 0
	for _, ev := range c.received() {
		if ev.Type == kind {
			n++
		}
	}
	return n
}

type fakeUploader struct {
	url   string
	err   error
	calls []media.Options
}

func (f *fakeUploader) Upload(_ context.Context, _ string, opts media.Options) (string, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

// failingAppend wraps a group repository whose AppendMessage always fails.
type failingAppend struct {
	repositories.GroupRepository
}

func (failingAppend) AppendMessage(context.Context, string, string) error {
	return errors.New("write conflict")
}

type harness struct {
	users    *repositories.MemoryUserRepo
	groups   repositories.GroupRepository
	messages *repositories.MemoryMessageRepo
	registry *ws.Registry
	uploader *fakeUploader
	group    *GroupService
	message  *MessageService
	conns    map[string]*recordingConn
}

func newHarness(t *testing.T, userIDs ...string) *harness {
	t.Helper()
	return newHarnessWithGroups(t, repositories.NewMemoryGroupRepo(), userIDs...)
}

func newHarnessWithGroups(t *testing.T, groups repositories.GroupRepository, userIDs ...string) *harness {
	t.Helper()
	users := make([]models.User, 0, len(userIDs))
	for _, id := range userIDs {
		users = append(users, models.User{ID: id, FullName: id})
	}

	h := &harness{
		users:    repositories.NewMemoryUserRepo(users...),
		groups:   groups,
		messages: repositories.NewMemoryMessageRepo(),
		registry: ws.NewRegistry(),
		uploader: &fakeUploader{url: "https://cdn.example.com/img.png"},
		conns:    map[string]*recordingConn{},
	}
	dispatcher := ws.NewDispatcher(h.registry, logger.Nop())
	resolver := NewResolver(h.groups, h.users)
	h.group = NewGroupService(h.groups, h.users, h.uploader, dispatcher, logger.Nop())
	h.message = NewMessageService(resolver, h.groups, h.messages, h.uploader, dispatcher, logger.Nop())
	return h
}

// online connects users to the registry with recording connections.
func (h *harness) online(userIDs ...string) {
	for _, id := range userIDs {
		conn := &recordingConn{id: "conn-" + id}
		h.conns[id] = conn
		h.registry.Register(id, conn)
	}
}

// reset forgets every recorded push.
func (h *harness) reset() {
	for _, c := range h.conns {
		c.mu.Lock()
		c.events = nil
		c.mu.Unlock()
	}
}

func (h *harness) mustCreateGroup(t *testing.T, creator string, members ...string) models.Group {
	t.Helper()
	group, err := h.group.Create(context.Background(), creator, CreateGroupInput{Name: "team", MemberIDs: members})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	h.reset()
	return group
}

func kindOf(err error) apperr.Kind {
	return apperr.KindOf(err)
}
