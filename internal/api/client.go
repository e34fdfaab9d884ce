package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/webstone-core/internal/infrastructure/config"
	"github.com/nerrad567/webstone-core/internal/protocol"
	"github.com/nerrad567/webstone-core/internal/session"
)

const defaultSendBuffer = 256

// Client is one WebSocket connection.
//
// session is owned by the loop: it is only read or changed by tasks running
// there. The send side is guarded by mu so that a send racing with close
// never writes to a closed channel.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	id      uuid.UUID
	session *session.Session

	mu        sync.RWMutex
	send      chan []byte
	closed    bool
	closeCode int
	closeText string
}

func newClient(hub *Hub, conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

// trySend queues data without blocking. It reports false when the client is
// closed or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendMessage encodes and queues one frame.
func (c *Client) sendMessage(t protocol.Type, payload any) bool {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		c.hub.logger.Error("failed to encode message", "type", t, "error", err)
		return false
	}
	return c.trySend(data)
}

// close stops accepting frames. The write pump flushes what is already
// queued, then sends a close frame with code and text.
func (c *Client) close(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeText = text
	close(c.send)
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) closeFrame() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeText)
}

func pingTimings(cfg config.WebSocketConfig) (pingInterval, pongWait time.Duration) {
	pingInterval = time.Duration(cfg.PingInterval) * time.Second
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	pongWait = time.Duration(cfg.PongTimeout) * time.Second
	if pongWait <= 0 {
		pongWait = 10 * time.Second
	}
	return pingInterval, pongWait
}

// readPump reads frames until the connection fails or handle returns false,
// then calls done. The write pump owns closing the connection, so frames
// queued before the close still go out.
func (c *Client) readPump(cfg config.WebSocketConfig, handle func([]byte) bool, done func()) {
	defer done()

	if cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	}
	pingInterval, pongWait := pingTimings(cfg)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "socket_id", c.id, "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "socket_id", c.id, "error", err)
			}
			return
		}
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		if !handle(message) {
			return
		}
	}
}

// writePump writes queued frames and keepalive pings. When the send channel
// is closed it writes the close frame and closes the connection.
func (c *Client) writePump(cfg config.WebSocketConfig) {
	pingInterval, pongWait := pingTimings(cfg)
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if !ok {
				//nolint:errcheck // Best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, c.closeFrame())
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
