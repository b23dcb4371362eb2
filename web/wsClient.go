package web

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// wsClient is one browser tab. It holds at most one pending frame: a slow
// tab skips frames instead of queueing them.
type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		id:   "ws-" + uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}
}

func (c *wsClient) push(frame []byte) {
	select {
	case c.send <- frame:
		return
	default:
	}
	// replace the stale frame with the newest one
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *wsClient) writeLoop() {
	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				slog.Debug("Viewer write failed", "id", c.id, "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop watches for the tab closing and for a "quit" text message.
func (c *wsClient) readLoop(onQuit func()) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket connection error", "id", c.id, "error", err)
			}
			return
		}
		if kind == websocket.TextMessage && string(data) == "quit" {
			onQuit()
		}
	}
}

func (c *wsClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
