package stomp

import (
	"context"
	"time"

	"github.com/coder/websocket"
)

// Conn frames STOMP over a websocket connection, with an optional
// per-write timeout. Reads are unbounded: a chat connection can sit
// idle indefinitely.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// Read returns the next frame, skipping heart-beat payloads.
func (c *Conn) Read(ctx context.Context) (*Frame, error) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, err
		}
		f, err := Parse(data)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		return f, nil
	}
}

func (c *Conn) Write(ctx context.Context, f *Frame) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return c.ws.Write(ctx, websocket.MessageText, f.Marshal())
}

func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.ws.Close(code, reason)
}
