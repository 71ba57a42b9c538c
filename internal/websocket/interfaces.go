package websocket

import (
	"context"
	"time"

	"demandboard/pkg/contracts/events"
)

// Connection defines the subset of a WebSocket connection the pumps use.
// It exists so tests can swap in MockConnection.
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage blocks until the next message arrives
	ReadMessage() (messageType int, p []byte, err error)

	// Close closes the connection
	Close() error

	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)

	// RemoteAddr returns the remote network address
	RemoteAddr() string
}

// MessageHandler answers one inbound client message. A nil reply sends nothing.
type MessageHandler interface {
	HandleMessage(ctx context.Context, clientID string, msg events.InboundMessage) *events.WebSocketMessage
}

// MessageHandlerFunc adapts a function to MessageHandler
type MessageHandlerFunc func(ctx context.Context, clientID string, msg events.InboundMessage) *events.WebSocketMessage

// HandleMessage calls f
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, clientID string, msg events.InboundMessage) *events.WebSocketMessage {
	return f(ctx, clientID, msg)
}
