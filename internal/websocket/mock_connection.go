package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrMockClosed is returned by a closed MockConnection
var ErrMockClosed = errors.New("connection closed")

// MockMessage represents a message for mocking
type MockMessage struct {
	Type int
	Data []byte
}

// MockConnection is an in-memory Connection for tests. ReadMessage blocks
// until a message is queued with Push or the connection is closed.
type MockConnection struct {
	mu      sync.Mutex
	inbound chan MockMessage
	closed  chan struct{}
	once    sync.Once

	written       []MockMessage
	readLimit     int64
	readDeadline  time.Time
	pongHandler   func(string) error
	RemoteAddress string

	// WriteErr, when set, fails every write
	WriteErr error
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		inbound:       make(chan MockMessage, 64),
		closed:        make(chan struct{}),
		RemoteAddress: "127.0.0.1:8080",
	}
}

// Push queues a text message for ReadMessage
func (m *MockConnection) Push(data []byte) {
	m.inbound <- MockMessage{Type: websocket.TextMessage, Data: data}
}

// WriteMessage records the message
func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	select {
	case <-m.closed:
		return ErrMockClosed
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.written = append(m.written, MockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

// ReadMessage returns the next pushed message
func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.inbound:
		return msg.Type, msg.Data, nil
	case <-m.closed:
		return 0, nil, ErrMockClosed
	}
}

// Close unblocks readers; it is safe to call more than once
func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

// IsClosed reports whether Close has been called
func (m *MockConnection) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(time.Time) error {
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

// RemoteAddr implements Connection.RemoteAddr
func (m *MockConnection) RemoteAddr() string {
	return m.RemoteAddress
}

// ReadLimit returns the limit set by the read pump
func (m *MockConnection) ReadLimit() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readLimit
}

// Written returns the text messages written so far
func (m *MockConnection) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out [][]byte
	for _, msg := range m.written {
		if msg.Type == websocket.TextMessage {
			out = append(out, msg.Data)
		}
	}
	return out
}
