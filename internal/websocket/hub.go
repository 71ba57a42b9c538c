package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"demandboard/internal/config"
	"demandboard/internal/infrastructure"
	"demandboard/pkg/contracts/events"
)

// HubOptions configures a Hub
type HubOptions struct {
	// Handler answers inbound client messages; nil ignores them
	Handler MessageHandler
	Metrics *infrastructure.DashboardMetrics
	Timings config.WebSocketConfig

	// Greeting builds the connect payload sent to each new client
	Greeting func(clientID string) interface{}

	// AnnouncePresence sends every client the new count when one joins or leaves
	AnnouncePresence bool
}

// Hub maintains the set of active clients and fans server messages out to them
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu     sync.RWMutex
	opts   HubOptions
	logger *slog.Logger
	root   *slog.Logger

	totalConnections int64
	messagesSent     int64
	messagesDropped  int64
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger, opts HubOptions) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if opts.Timings.PongWait == 0 {
		opts.Timings = config.Default().WebSocket
	}

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		opts:       opts,
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		root:       logger,
	}
}

// Run is the hub's main loop. It returns nil once ctx is cancelled, after
// closing every client's send queue.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.InfoContext(ctx, "hub shutting down")
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.opts.Metrics.RecordWebSocketClient(client.ctx, 1)
			h.logger.InfoContext(client.ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			if h.opts.Greeting != nil {
				h.SendToClient(client, NewMessage(client.ctx, events.MessageTypeConnect, h.opts.Greeting(client.id)))
			}
			h.announce(client.ctx)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				client.close()
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				h.opts.Metrics.RecordWebSocketClient(client.ctx, -1)
				h.logger.InfoContext(client.ctx, "client unregistered",
					slog.String("client_id", client.id),
					slog.Int("total_clients", count))
				h.announce(client.ctx)
			}
		}
	}
}

// announce fans the client count out to everyone. Clients whose queue is
// full are disconnected.
func (h *Hub) announce(ctx context.Context) {
	if !h.opts.AnnouncePresence {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	payload, err := json.Marshal(NewMessage(ctx, events.MessageTypeClients, events.ClientsData{
		ActiveConnections: len(h.clients),
	}))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal presence message", slog.String("error", err.Error()))
		return
	}

	for client := range h.clients {
		if !client.enqueue(payload) {
			// Slow consumer
			client.close()
			delete(h.clients, client)
			h.messagesDropped++
			h.opts.Metrics.RecordWebSocketClient(client.ctx, -1)
			continue
		}
		h.messagesSent++
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; it is a no-op once the hub has stopped
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToClient queues a message for one client only. A full queue drops it.
func (h *Hub) SendToClient(client *Client, msg *events.WebSocketMessage) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(client.ctx, "failed to marshal message",
			slog.String("client_id", client.id),
			slog.String("error", err.Error()))
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !client.enqueue(payload) {
		h.messagesDropped++
		h.logger.WarnContext(client.ctx, "dropped message for client",
			slog.String("client_id", client.id),
			slog.String("type", string(msg.Type)))
		return false
	}
	h.messagesSent++
	return true
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetHubMetrics returns connection counters for diagnostics
func (h *Hub) GetHubMetrics() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]interface{}{
		"active_connections": len(h.clients),
		"total_connections":  h.totalConnections,
		"messages_sent":      h.messagesSent,
		"messages_dropped":   h.messagesDropped,
	}
}

// NewMessage builds a server message stamped with the context's trace ID
func NewMessage(ctx context.Context, messageType events.MessageType, data interface{}) *events.WebSocketMessage {
	return &events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      messageType,
			Timestamp: time.Now().UTC(),
			TraceID:   infrastructure.GetTraceID(ctx),
		},
		Data: data,
	}
}

// NewErrorMessage builds an error message for one client
func NewErrorMessage(ctx context.Context, code, message string, details interface{}) *events.WebSocketMessage {
	return NewMessage(ctx, events.MessageTypeError, events.ErrorData{
		Code:    code,
		Message: message,
		Details: details,
	})
}
