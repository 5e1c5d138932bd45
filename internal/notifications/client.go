package notifications

import (
	"bytes"
	"context"
	"sync"
	"time"

	"unitoku/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must stay below pongWait.
	pingPeriod = pongWait * 9 / 10

	// Inbound frames are only keepalives, so they stay small.
	maxMessageSize = 1024
	sendBuffer     = 256
)

var (
	dropNotice  = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)
	appPing     = []byte(`{"type":"ping"}`)
	appPongJSON = []byte(`{"type":"pong"}`)
)

// Socket is the part of a websocket connection a Client drives.
type Socket interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// WSHub is implemented by hubs that own clients.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one student's socket. The hub queues events on Send and the
// write loop flushes them.
type Client struct {
	Hub    WSHub
	Conn   Socket
	UserID uint
	// Send is the outbound queue; the hub closes it on unregister.
	Send chan []byte

	log    *observability.WSLogger
	mu     sync.RWMutex
	closed bool
}

// NewClient wraps conn for userID.
func NewClient(hub WSHub, conn Socket, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
		log:    observability.NewWSLogger(hub.Name()),
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Serve runs the write loop in the background and reads until the peer goes
// away. The client is unregistered on return.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	extend := func() error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend()
	c.Conn.SetPongHandler(func(string) error { return extend() })

	for {
		kind, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.LogError(context.Background(), c.UserID, err, "read")
			}
			return
		}
		// Browsers cannot send ping frames, so they send {"type":"ping"}.
		if kind == websocket.TextMessage && bytes.Equal(bytes.TrimSpace(data), appPing) {
			_ = extend()
			c.TrySend(appPongJSON)
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	write := func(kind int, data []byte) error {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		return c.Conn.WriteMessage(kind, data)
	}
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				_ = write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues msg without blocking. When the queue is full msg is dropped
// and a messages_dropped notice is queued instead if room remains, so the
// app knows to refetch.
func (c *Client) TrySend(msg []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	drops := observability.WebSocketBackpressureDrops
	if c.closed {
		drops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
	}
	drops.WithLabelValues(c.Hub.Name(), "full").Inc()
	select {
	case c.Send <- dropNotice:
	default:
	}
	return false
}
