package testutil

import (
	"context"
	"sync"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/websocket"
)

// MockRecordSource is a mock implementation of domain.RecordSource
type MockRecordSource struct {
	Records []*domain.RawRecord
	Err     error
	FetchFn func(ctx context.Context) ([]*domain.RawRecord, error)

	mu    sync.Mutex
	calls int
}

// NewMockRecordSource creates a MockRecordSource serving records
func NewMockRecordSource(records ...*domain.RawRecord) *MockRecordSource {
	return &MockRecordSource{Records: records}
}

// FetchRecords returns the configured records or error
func (m *MockRecordSource) FetchRecords(ctx context.Context) ([]*domain.RawRecord, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.FetchFn != nil {
		return m.FetchFn(ctx)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Records, nil
}

// Calls returns how many times FetchRecords ran
func (m *MockRecordSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SentMessage records one call to MockAssistantClient.Send
type SentMessage struct {
	SessionID string
	Message   string
}

// MockAssistantClient is a mock implementation of domain.AssistantClient
type MockAssistantClient struct {
	Reply  string
	Err    error
	SendFn func(ctx context.Context, sessionID, message string) (string, error)

	mu   sync.Mutex
	Sent []SentMessage
}

// NewMockAssistantClient creates a MockAssistantClient that answers with reply
func NewMockAssistantClient(reply string) *MockAssistantClient {
	return &MockAssistantClient{Reply: reply}
}

// Send records the message and returns the configured reply or error
func (m *MockAssistantClient) Send(ctx context.Context, sessionID, message string) (string, error) {
	m.mu.Lock()
	m.Sent = append(m.Sent, SentMessage{SessionID: sessionID, Message: message})
	m.mu.Unlock()

	if m.SendFn != nil {
		return m.SendFn(ctx, sessionID, message)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Reply, nil
}

// SentMessages returns a copy of every message sent so far
func (m *MockAssistantClient) SentMessages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Sent...)
}

// MockEventPublisher captures published events
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []websocket.Event
}

// NewMockEventPublisher creates a new MockEventPublisher
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

// Publish stores the event
func (m *MockEventPublisher) Publish(event websocket.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// EventTypes returns the types of the published events in order
func (m *MockEventPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		types = append(types, e.Type)
	}
	return types
}
