package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const maxInboundMessageSize = 4096

// ClientOptions tunes the per-connection writer.
type ClientOptions struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PongTimeout  time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	return o
}

// Client is one websocket connection. A single writer goroutine drains the
// buffered send channel, which keeps delivery FIFO per connection.
type Client struct {
	info ConnInfo
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	opts ClientOptions
}

// NewClient wraps an upgraded websocket connection.
func NewClient(conn *websocket.Conn, info ConnInfo, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	return &Client{
		info: info,
		conn: conn,
		send: make(chan []byte, opts.SendBuffer),
		done: make(chan struct{}),
		opts: opts,
	}
}

func (c *Client) ID() string { return c.info.ConnID }

// Info returns the connection metadata.
func (c *Client) Info() ConnInfo { return c.info }

// Enqueue never blocks and never panics on a closed client.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close stops the writer and closes the socket. Safe to call repeatedly.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// WritePump writes queued events and keepalive pings until the client closes.
func (c *Client) WritePump() {
	pingEvery := c.opts.PongTimeout * 9 / 10
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump keeps the connection alive and returns the read error that ended it.
// The live channel is server-to-client, so inbound frames are discarded.
func (c *Client) ReadPump() error {
	c.conn.SetReadLimit(maxInboundMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return err
		}
	}
}
