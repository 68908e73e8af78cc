package domain

import (
	"context"
	"time"
)

// ChatRole identifies who authored a chat message
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleSystem    ChatRole = "system"
)

// ChatMessage is one entry of an assistant conversation
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatExchange is the result of sending one user message
type ChatExchange struct {
	SessionID string
	Messages  []ChatMessage
}

// AssistantClient relays a user message to the conversational assistant
type AssistantClient interface {
	Send(ctx context.Context, sessionID, message string) (string, error)
}
