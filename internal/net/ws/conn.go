// Package ws exposes the realtime websocket surface: one connection per
// client, JSON messages in both directions, and a gateway that routes
// inbound messages to matchmaking and active games.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// wsConn wraps one websocket connection. Writes are serialized under mu so
// concurrent broadcasts never interleave frames, and every write carries a
// deadline so a stalled peer cannot wedge the sender.
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{id: uuid.NewString(), conn: conn}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	c.conn.WriteMessage(websocket.CloseMessage, message)
	c.conn.Close()
}
