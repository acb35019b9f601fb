package ws

import (
	"sort"
	"sync"
)

// Connection is a live, writable handle for one user.
type Connection interface {
	ID() string
	// Enqueue hands an encoded event to the connection writer without
	// blocking. It returns false when the connection is closed or saturated.
	Enqueue(payload []byte) bool
	Close()
}

// Registry maps user ids to at most one live connection. The last
// registration for a user wins.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Connection)}
}

// Register stores conn for userID and returns the handle it displaced, if any.
func (r *Registry) Register(userID string, conn Connection) Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[userID]
	r.conns[userID] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// Unregister removes the entry for userID if present.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, userID)
}

// UnregisterConn removes the entry only while it still points at conn, so a
// displaced connection that closes late cannot evict its replacement.
func (r *Registry) UnregisterConn(userID string, conn Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[userID]; ok && current == conn {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the live connection of userID.
func (r *Registry) Lookup(userID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// ListOnline returns a sorted snapshot of connected user ids.
func (r *Registry) ListOnline() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Count returns the number of connected users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
