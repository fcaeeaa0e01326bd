/*
Package chat contains the core logic for the live chat session layer.

This file defines the Client, which owns one WebSocket connection: the read
pump feeding inbound frames to the protocol engine, the write pump draining
the outbound queue with keepalive pings, and teardown.
*/
package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"flirto/internal/pkg/errs"
	"flirto/internal/pkg/logx"
	"flirto/internal/pkg/randx"
)

const (
	// writeWait is the maximum duration allowed for a single write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum wait time for a client Pong response.
	pongWait = 60 * time.Second

	// pingPeriod is the interval for sending Ping messages. Must be shorter
	// than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxFrameSize bounds a single inbound frame. The message body limit is
	// enforced separately by the engine, in runes.
	maxFrameSize = 8192

	// sendQueueSize is the outbound queue capacity per connection.
	sendQueueSize = 256
)

// WsCloseCodeSessionReplaced is the custom close code sent when a newer login
// of the same user displaces this connection.
const WsCloseCodeSessionReplaced = 4001

// wsConn is the slice of *websocket.Conn the Client depends on. Tests
// substitute an in-memory implementation.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client owns one WebSocket connection end to end. All protocol state lives
// in the engine and the presence table; the Client only moves frames.
type Client struct {
	connID string
	conn   wsConn
	engine *Engine

	send chan []byte
	done chan struct{}

	closeOnce sync.Once
	logger    zerolog.Logger
}

// NewClient wraps an accepted connection. The caller starts WritePump in its
// own goroutine and then runs ReadPump.
func NewClient(engine *Engine, conn wsConn) *Client {
	connID := randx.ConnectionID()
	return &Client{
		connID: connID,
		conn:   conn,
		engine: engine,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		logger: logx.Logger().With().Str("conn_id", connID).Logger(),
	}
}

// ID returns the connection identifier, unique for the process lifetime.
func (c *Client) ID() string {
	return c.connID
}

// ReadPump reads frames from the connection and hands them to the engine
// until the connection errors or closes. It owns teardown: when it returns,
// the session is removed from presence and the write pump is released.
func (c *Client) ReadPump() {
	defer func() {
		c.engine.Disconnect(c)
		c.shutdown()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("Connection closed unexpectedly.")
			}
			return
		}
		c.engine.HandleInbound(c, data)
	}
}

// WritePump drains the outbound queue onto the connection and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			return

		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue queues an outbound frame without blocking. Returns false when the
// connection is closing or its queue is full; the frame is dropped.
func (c *Client) enqueue(data []byte) bool {
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

// sendEvent marshals and enqueues an event addressed to this connection only.
func (c *Client) sendEvent(t EventType, payload any) {
	data, err := encodeEvent(t, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(t)).Msg("Failed to marshal event.")
		return
	}
	if !c.enqueue(data) {
		c.logger.Warn().Str("event_type", string(t)).Msg("Dropped event for slow or closed connection.")
	}
}

// SendError reports a business error to this connection. Errors never fan
// out; they stay local to the connection that caused them.
func (c *Client) SendError(e *errs.CustomError) {
	c.sendEvent(EventError, ErrorPayload{Code: e.Code, Message: e.Message})
}

// Kick writes a close frame with the session-replaced code and tears the
// connection down. Used when a duplicate login displaces this session.
func (c *Client) Kick(reason string) {
	msg := websocket.FormatCloseMessage(WsCloseCodeSessionReplaced, reason)
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
	c.shutdown()
}

// shutdown releases both pumps and closes the underlying connection. Safe to
// call from multiple goroutines.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
