package gateway

import (
	"context"
	"sync"
)

// MockGateway records sent messages in memory for unit tests.
// FailFor lists recipient addresses whose delivery should fail.
type MockGateway struct {
	mu      sync.Mutex
	sent    []Message
	FailFor map[string]error

	// SendErr, when set, fails every delivery.
	SendErr error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{FailFor: make(map[string]error)}
}

func (m *MockGateway) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	if err, ok := m.FailFor[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of all successfully delivered messages.
func (m *MockGateway) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}

var _ Gateway = (*MockGateway)(nil)
