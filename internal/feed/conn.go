package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is the part of a websocket connection the manager uses.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens feed connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketDialer dials with a gorilla websocket.Dialer.
type WebsocketDialer struct {
	Dialer *websocket.Dialer
}

// Dial opens a websocket connection to url.
func (d WebsocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// Endpoint joins the feed base URL and the client id.
func Endpoint(base, clientID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("feed url %q: scheme must be ws or wss", base)
	}
	if clientID == "" {
		return "", fmt.Errorf("feed client id is empty")
	}
	return u.JoinPath(clientID).String(), nil
}

// sender is the send-only view of an open connection handed to the store.
// gorilla connections allow one concurrent writer, hence the mutex.
type sender struct {
	mu   sync.Mutex
	conn Conn
}

// Send encodes v as JSON and writes it as one text frame.
func (h *sender) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode feed message: %w", err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn.WriteMessage(websocket.TextMessage, data)
}
