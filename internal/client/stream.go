package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"ping-me/internal/models"
)

// EventStream is the receiving end of the live channel.
type EventStream struct {
	conn *websocket.Conn
}

// DialStream opens the live channel at baseURL ("http://host:port").
func DialStream(ctx context.Context, baseURL, token string) (*EventStream, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial live channel: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial live channel: %w", err)
	}
	return &EventStream{conn: conn}, nil
}

// Next blocks for the next pushed event.
func (s *EventStream) Next() (models.Event, error) {
	var ev models.Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		return models.Event{}, err
	}
	return ev, nil
}

// Pump applies events to store until the stream fails.
func (s *EventStream) Pump(store *Store) error {
	for {
		ev, err := s.Next()
		if err != nil {
			return err
		}
		store.ApplyEvent(ev)
	}
}

func (s *EventStream) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}
