package messaging

import (
	"context"
	"sync"
)

// MockEventSender is an in-memory implementation of EventSender for testing.
// It records every message it receives.
type MockEventSender struct {
	mu       sync.Mutex
	messages []*EventMessage
	closed   bool

	// SendErr, when set, is returned by every SendEventMessage call.
	SendErr error
}

// NewMockEventSender creates a new MockEventSender.
func NewMockEventSender() *MockEventSender {
	return &MockEventSender{}
}

// SendEventMessage records the message.
func (m *MockEventSender) SendEventMessage(ctx context.Context, msg *EventMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendErr != nil {
		return m.SendErr
	}

	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of every recorded message.
func (m *MockEventSender) Messages() []*EventMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*EventMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Close marks the sender closed.
func (m *MockEventSender) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockEventSender) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// Ensure MockEventSender implements EventSender
var _ EventSender = (*MockEventSender)(nil)
