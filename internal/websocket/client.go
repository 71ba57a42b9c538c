package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"demandboard/internal/infrastructure"
	"demandboard/pkg/contracts/events"
)

const sendQueueSize = 64

// Client is a middleman between one websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// Outbound messages; closed by the hub
	send   chan []byte
	mu     sync.Mutex
	closed bool

	id          string
	remoteAddr  string
	connectedAt time.Time

	// ctx carries the upgrade request's trace ID
	ctx    context.Context
	logger *slog.Logger

	messagesReceived int64
	bytesReceived    int64
}

// NewClient creates a client for conn. ctx should outlive the HTTP request.
func NewClient(ctx context.Context, hub *Hub, conn Connection) *Client {
	id := uuid.New().String()
	ctx = infrastructure.EnsureTraceID(ctx)

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendQueueSize),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		ctx:         ctx,
		logger:      infrastructure.WithComponent(hub.root, "websocket.client").With(slog.String("client_id", id)),
	}
}

// ID returns the client identifier
func (c *Client) ID() string {
	return c.id
}

// enqueue queues a payload without blocking. It reports false when the
// queue is full or closed.
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Serve registers the client and starts both pumps
func (c *Client) Serve() {
	if !c.hub.Register(c) {
		c.conn.Close()
		return
	}
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump reads client messages until the connection fails. Each message is
// handled before the next is read, so replies keep request order.
func (c *Client) ReadPump() {
	timings := c.hub.opts.Timings
	defer func() {
		c.logger.InfoContext(c.ctx, "client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived),
			slog.Int64("bytes_received", c.bytesReceived))
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(timings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(timings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(timings.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.WarnContext(c.ctx, "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		message = bytes.TrimSpace(message)
		c.messagesReceived++
		c.bytesReceived += int64(len(message))

		c.handle(message)
	}
}

func (c *Client) handle(message []byte) {
	var msg events.InboundMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.hub.opts.Metrics.RecordWebSocketMessage(c.ctx, "inbound", "invalid")
		c.reply(NewErrorMessage(c.ctx, "INVALID_MESSAGE", "message is not valid JSON", nil))
		return
	}
	c.hub.opts.Metrics.RecordWebSocketMessage(c.ctx, "inbound", string(msg.Type))

	if msg.Type == events.MessageTypeHeartbeat {
		c.logger.DebugContext(c.ctx, "heartbeat received")
		return
	}
	if c.hub.opts.Handler == nil {
		return
	}

	if reply := c.hub.opts.Handler.HandleMessage(c.ctx, c.id, msg); reply != nil {
		if reply.ID == "" {
			reply.ID = msg.ID
		}
		c.reply(reply)
	}
}

func (c *Client) reply(msg *events.WebSocketMessage) {
	if c.hub.SendToClient(c, msg) {
		c.hub.opts.Metrics.RecordWebSocketMessage(c.ctx, "outbound", string(msg.Type))
	}
}

// WritePump writes queued messages and pings to the connection
func (c *Client) WritePump() {
	timings := c.hub.opts.Timings
	ticker := time.NewTicker(timings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(timings.WriteWait))
			if !ok {
				// The hub closed the queue
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.ErrorContext(c.ctx, "failed to write message", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(timings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.ctx, "failed to send ping", slog.String("error", err.Error()))
				return
			}
		}
	}
}
