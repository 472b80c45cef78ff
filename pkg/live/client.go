package live

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a Go peer of the live protocol, used by tooling and tests in
// place of the browser script
type Client struct {
	conn *websocket.Conn

	// Session is the id announced in the server's HELLO
	Session string
}

// Dial connects to url and waits for the server's HELLO
func Dial(ctx context.Context, url string, header http.Header) (*Client, *http.Response, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, err
	}

	c := &Client{conn: conn}
	frame, err := c.Next(ctx)
	if err != nil {
		conn.Close()
		return nil, resp, fmt.Errorf("waiting for hello: %w", err)
	}
	if frame.Type != FrameControl || frame.Control != ControlHello {
		conn.Close()
		return nil, resp, fmt.Errorf("expected hello, got frame 0x%02x %q", uint8(frame.Type), frame.Control)
	}
	c.Session = frame.Session
	return c, resp, nil
}

// Send writes one event
func (c *Client) Send(evt Event) error {
	return c.conn.WriteMessage(websocket.BinaryMessage, EncodeEvent(evt))
}

// Ping asks the server for a PONG control frame
func (c *Client) Ping() error {
	return c.conn.WriteMessage(websocket.BinaryMessage, EncodeControl(ControlPing))
}

// Next reads the next server frame. The context deadline, if any, bounds
// the read.
func (c *Client) Next(ctx context.Context) (*ServerFrame, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	c.conn.SetReadDeadline(deadline)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		return DecodeServerFrame(data)
	}
}

// Close ends the session
func (c *Client) Close() error {
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return c.conn.Close()
}
