package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gardenly/chat-service/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size: the event envelope plus a full-length
	// message body, with room for multibyte runes.
	maxMessageSize = 16384

	// Outbound buffer per connection. A peer that falls this far behind is
	// dropped rather than allowed to stall the fan-out.
	sendBufferSize = 256
)

// Client is one live, authenticated connection. It is the unit the registry
// tracks and the dispatcher fans out to; several clients may carry the same
// identity when a user is connected from more than one device.
type Client struct {
	id       string
	identity model.Identity

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn, identity model.Identity) *Client {
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// ID returns the process-local connection id.
func (c *Client) ID() string { return c.id }

// Identity returns the authenticated identity behind the connection.
func (c *Client) Identity() model.Identity { return c.identity }

// trySend queues data for delivery without blocking. It reports false when
// the connection is closed or its buffer is full; the caller decides what a
// failed delivery means.
func (c *Client) trySend(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// close releases the connection. Safe to call more than once; the first call
// wins and the write pump sends the close frame on its way out.
func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump pumps inbound events from the websocket into the handler. It runs
// as one goroutine per connection; exit tears the connection down.
func (c *Client) readPump(h *Handler) {
	defer func() {
		h.registry.Remove(c.id)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn("connection read failed",
					zap.String("connection", c.id),
					zap.String("user", c.identity.ID),
					zap.Error(err))
			}
			return
		}
		h.dispatch(c, raw)
	}
}

// writePump pumps queued events to the websocket and keeps the connection
// alive with pings. One goroutine per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
