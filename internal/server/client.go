package server

import (
	"context"
	"sync"
	"time"

	"catalog-chat/internal/domain"
	catalog_errors "catalog-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	sendBufferSize    = 256
	inboundBufferSize = 64
)

// Client represents a single WebSocket connection
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	inbound  chan Event
	clientID string
	identity domain.Identity
	logger   *WebSocketLogger

	mu     sync.Mutex
	closed bool
}

// NewClient wraps conn. A nil conn is allowed for clients that are never pumped.
func NewClient(hub *Hub, conn *websocket.Conn, identity domain.Identity, logger *WebSocketLogger) *Client {
	if logger == nil {
		logger = NewWebSocketLogger(nil)
	}
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		inbound:  make(chan Event, inboundBufferSize),
		clientID: uuid.New().String(),
		identity: identity,
		logger:   logger,
	}
}

func (c *Client) ID() string {
	return c.clientID
}

func (c *Client) Identity() domain.Identity {
	return c.identity
}

// Events is the typed inbound stream, closed when the read side ends.
func (c *Client) Events() <-chan Event {
	return c.inbound
}

// Outbound exposes queued frames; writePump is the only reader in production.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// deliver queues a frame without blocking.
func (c *Client) deliver(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return catalog_errors.ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return catalog_errors.ErrDeliveryFailed
	}
}

// closeSend stops delivery and lets writePump send a close frame. Idempotent.
func (c *Client) closeSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

// readPump decodes frames into events until the connection fails or ctx ends.
// It closes the inbound stream and unregisters the client on return.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		close(c.inbound)
		c.hub.OnDisconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Error("websocket unexpected close", c.identity.UserID, c.clientID, err)
			}
			return
		}

		ev, ok := c.decode(message)
		if !ok {
			continue
		}

		select {
		case c.inbound <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) decode(message []byte) (Event, bool) {
	frame, err := DecodeFrame(message)
	if err != nil {
		c.logger.Warn("malformed frame", c.identity.UserID, c.clientID, zap.Error(err))
		return Event{}, false
	}
	kind, ok := kindOf(frame.Event)
	if !ok {
		c.logger.Warn("unknown event", c.identity.UserID, c.clientID, zap.String("name", frame.Event))
		return Event{}, false
	}
	return Event{Kind: kind, Payload: frame.Data, ReceivedAt: time.Now()}, true
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("write failed", c.identity.UserID, c.clientID, zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
