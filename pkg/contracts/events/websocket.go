// Package events contains the WebSocket message contracts exchanged between
// the dashboard backend and its clients.
package events

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Client to server
	MessageTypeFilter    MessageType = "filter"
	MessageTypeHeartbeat MessageType = "heartbeat"

	// Server to client
	MessageTypeDashboardUpdate MessageType = "dashboard:update"
	MessageTypeConnect         MessageType = "connect"
	MessageTypeClients         MessageType = "clients:update"
	MessageTypeError           MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage is a server to client message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// InboundMessage is a client to server message. Data stays raw until the
// type is known.
type InboundMessage struct {
	ID   string          `json:"id,omitempty"`
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of an error message
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ConnectData greets a newly registered client
type ConnectData struct {
	ClientID string   `json:"client_id"`
	Products []string `json:"products"`
	Version  string   `json:"version"`
}

// ClientsData announces the connected client count after a join or leave
type ClientsData struct {
	ActiveConnections int `json:"active_connections"`
}
