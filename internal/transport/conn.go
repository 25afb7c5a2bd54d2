package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/matheus3301/chatline/internal/fault"
	"nhooyr.io/websocket"
)

// Conn is one live session to the event server.
type Conn interface {
	// Read blocks until the next text frame arrives or the session fails.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	// Close performs a closing handshake with the given status code.
	Close(code int, reason string) error
	// CloseNow drops the connection without a handshake.
	CloseNow() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

const maxFrameSize = 64 * 1024

// WebSocketDialer dials the event server over WebSocket.
type WebSocketDialer struct {
	URL        string
	HTTPClient *http.Client
}

func (d WebSocketDialer) Dial(ctx context.Context) (Conn, error) {
	c, _, err := websocket.Dial(ctx, d.URL, &websocket.DialOptions{HTTPClient: d.HTTPClient})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w: %v", d.URL, fault.ErrConnection, err)
	}
	c.SetReadLimit(maxFrameSize)
	return wsConn{c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	if err != nil {
		if status := websocket.CloseStatus(err); status != -1 {
			return nil, fmt.Errorf("%w: closed by server (%d)", fault.ErrConnection, status)
		}
		return nil, fmt.Errorf("%w: %v", fault.ErrConnection, err)
	}
	return data, nil
}

func (w wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w wsConn) Close(code int, reason string) error {
	return w.c.Close(websocket.StatusCode(code), reason)
}

func (w wsConn) CloseNow() error {
	return w.c.CloseNow()
}
