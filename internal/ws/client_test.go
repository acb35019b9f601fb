package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientEnqueueUntilFull(t *testing.T) {
	c := NewClient(nil, ConnInfo{ConnID: "c1", UserID: "u1"}, ClientOptions{SendBuffer: 2})

	assert.Equal(t, "c1", c.ID())
	assert.True(t, c.Enqueue([]byte("1")))
	assert.True(t, c.Enqueue([]byte("2")))
	assert.False(t, c.Enqueue([]byte("3")))
}

func TestClientEnqueueAfterClose(t *testing.T) {
	c := NewClient(nil, ConnInfo{ConnID: "c1"}, ClientOptions{})
	c.Close()
	c.Close()

	assert.NotPanics(t, func() {
		assert.False(t, c.Enqueue([]byte("x")))
	})
	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestClientOptionsDefaults(t *testing.T) {
	opts := ClientOptions{}.withDefaults()
	assert.Equal(t, 256, opts.SendBuffer)
	assert.Positive(t, opts.WriteTimeout)
	assert.Positive(t, opts.PongTimeout)
}
