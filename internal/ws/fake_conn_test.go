package ws

import (
	"encoding/json"
	"sync"

	"ping-me/internal/models"
)

type fakeConn struct {
	id       string
	mu       sync.Mutex
	payloads [][]byte
	capacity int
	closed   bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, capacity: -1}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Enqueue(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	if f.capacity >= 0 && len(f.payloads) >= f.capacity {
		return false
	}
	f.payloads = append(f.payloads, payload)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) events() []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Event, 0, len(f.payloads))
	for _, p := range f.payloads {
		var ev models.Event
		if err := json.Unmarshal(p, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}
