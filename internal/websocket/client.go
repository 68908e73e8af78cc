package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Dashboards only listen; anything bigger than a close frame is a misbehaving peer
	maxInboundSize = 512

	// Dataset events are rare, a short queue is plenty
	sendQueueSize = 16
)

// Client is one dashboard subscribed to dataset events
type Client struct {
	id     string
	origin string
	conn   *websocket.Conn
	hub    *Hub

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection opened from origin
func NewClient(conn *websocket.Conn, origin string, hub *Hub) *Client {
	return &Client{
		id:     uuid.New().String(),
		origin: origin,
		conn:   conn,
		hub:    hub,
		queue:  make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// ID returns the client's unique identifier
func (c *Client) ID() string {
	return c.id
}

// Origin returns the Origin header the client connected with
func (c *Client) Origin() string {
	return c.origin
}

// Send queues an encoded event. A client that falls a full queue behind is
// treated as gone.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.queue <- data:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		log.Warn().Str("client_id", c.id).Msg("WebSocket client too slow, dropping")
		_ = c.Close()
		return ErrClientClosed
	}
}

// Close ends the subscription. The write loop sends the close frame and
// releases the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// Serve runs the client until the peer goes away or Close is called.
// It blocks; the caller runs it in its own goroutine.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop only watches for pongs and the close frame
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().
					Err(err).
					Str("client_id", c.id).
					Str("origin", c.origin).
					Msg("WebSocket client left")
			}
			return
		}
	}
}

// writeLoop owns the connection: it is the only writer and closes it on exit,
// which also ends readLoop
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return

		case data := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Msg("WebSocket write failed")
				_ = c.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
