package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to the entity
type EventType string

const (
	EventTypeRefreshed EventType = "refreshed"
	EventTypeFailed    EventType = "failed"
	EventTypeLoading   EventType = "loading"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeDataset EntityType = "dataset"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`   // Combined type e.g. "dataset.refreshed"
	Entity    EntityType  `json:"entity"` // Entity type e.g. "dataset"
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// DatasetPayload describes the snapshot a dataset event refers to
type DatasetPayload struct {
	Status      string    `json:"status"`
	RecordCount int       `json:"recordCount"`
	LoadedAt    time.Time `json:"loadedAt"`
	Error       string    `json:"error,omitempty"`
}

// DatasetLoading creates a dataset.loading event
func DatasetLoading(payload DatasetPayload) Event {
	return NewEvent(EventTypeLoading, EntityTypeDataset, payload)
}

// DatasetRefreshed creates a dataset.refreshed event
func DatasetRefreshed(payload DatasetPayload) Event {
	return NewEvent(EventTypeRefreshed, EntityTypeDataset, payload)
}

// DatasetFailed creates a dataset.failed event
func DatasetFailed(payload DatasetPayload) Event {
	return NewEvent(EventTypeFailed, EntityTypeDataset, payload)
}
