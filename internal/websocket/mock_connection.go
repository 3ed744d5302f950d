package websocket

import (
	"errors"
	"sync"
	"time"
)

// MockConnection implements Connection for tests. Reads are fed through a
// channel; writes are recorded.
type MockConnection struct {
	mu sync.Mutex

	incoming chan mockFrame
	written  []mockFrame
	closed   bool

	remoteAddr string
}

type mockFrame struct {
	messageType int
	data        []byte
}

// ErrMockClosed is returned from reads once the mock is closed.
var ErrMockClosed = errors.New("mock connection closed")

// NewMockConnection creates a mock with room for queued inbound frames.
func NewMockConnection() *MockConnection {
	return &MockConnection{
		incoming:   make(chan mockFrame, 16),
		remoteAddr: "127.0.0.1:54321",
	}
}

// QueueIncoming makes data available to the next ReadMessage call.
func (m *MockConnection) QueueIncoming(messageType int, data []byte) {
	m.incoming <- mockFrame{messageType: messageType, data: data}
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	frame, ok := <-m.incoming
	if !ok {
		return 0, nil, ErrMockClosed
	}
	return frame.messageType, frame.data, nil
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMockClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.written = append(m.written, mockFrame{messageType: messageType, data: buf})
	return nil
}

// Written returns all recorded writes as (messageType, payload) pairs.
func (m *MockConnection) Written() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.written))
	for i, f := range m.written {
		out[i] = f.data
	}
	return out
}

// WrittenTypes returns the message types of all recorded writes.
func (m *MockConnection) WrittenTypes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]int, len(m.written))
	for i, f := range m.written {
		types[i] = f.messageType
	}
	return types
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.incoming)
	}
	return nil
}

// Closed reports whether Close has been called.
func (m *MockConnection) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }
func (m *MockConnection) SetReadLimit(int64)               {}
func (m *MockConnection) SetPongHandler(func(string) error) {}

func (m *MockConnection) RemoteAddr() string {
	return m.remoteAddr
}
