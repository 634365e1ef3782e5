package backbone

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a gorilla websocket connection to the Conn interface.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) ReadEnvelope() (Envelope, error) {
	var env Envelope
	if err := w.c.ReadJSON(&env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

func (w *wsConn) WriteEnvelope(env Envelope) error {
	return w.c.WriteJSON(env)
}

func (w *wsConn) Close() error {
	return w.c.Close()
}

// WebSocketDialer dials the backbone over WebSocket.
type WebSocketDialer struct {
	// Header is sent with the upgrade request; used for auth tokens.
	Header http.Header

	// HandshakeTimeout bounds the upgrade. Zero means 10s.
	HandshakeTimeout time.Duration
}

// Dial establishes a WebSocket connection to the backbone URL.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout == 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}

	c, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return &wsConn{c: c}, nil
}
