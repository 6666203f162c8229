package connmgr

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

// Conn is one established push-channel connection.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, payload []byte) error
	Close() error
}

// Transport establishes push-channel connections. The manager owns the
// lifecycle; the transport only dials.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebsocketTransport dials the push channel over websocket.
type WebsocketTransport struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewWebsocketTransport creates a transport using the default dialer.
func NewWebsocketTransport(header http.Header) *WebsocketTransport {
	return &WebsocketTransport{
		dialer: websocket.DefaultDialer,
		header: header,
	}
}

func (t *WebsocketTransport) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, url, t.header)
	if err != nil {
		wrapped := errors.Wrap(err, "dial push channel").With("url", url)
		if resp != nil {
			wrapped = wrapped.With("status", resp.StatusCode)
		}
		return nil, wrapped
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := setDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(ctx context.Context, payload []byte) error {
	if err := setDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func setDeadline(ctx context.Context, set func(time.Time) error) error {
	if ctx == nil {
		return set(time.Time{})
	}
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	if ctx.Err() != nil {
		return set(time.Now())
	}
	return set(time.Time{})
}
