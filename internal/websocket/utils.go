package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute

	// PingPeriod must stay below readWait so a live peer always answers in time.
	PingPeriod = (readWait * 9) / 10
)

// Conn serializes writes to a gorilla connection, which allows only one concurrent writer.
type Conn struct {
	*websocket.Conn
	mu sync.Mutex
}

// Wrap returns a write-safe connection whose read deadline is pushed back
// by every pong from the peer.
func Wrap(conn *websocket.Conn) *Conn {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})
	return &Conn{Conn: conn}
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func (c *Conn) WriteTyped(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

// WritePing sends a ping control frame.
func (c *Conn) WritePing() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func (c *Conn) WriteError(errMsg string) error {
	return c.WriteTyped(ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadRequest reads and decodes the next client message with a read deadline.
func (c *Conn) ReadRequest(v *RequestPayload) error {
	_ = c.SetReadDeadline(time.Now().Add(readWait))
	return c.ReadJSON(v)
}
