package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
)

// replyFields are checked in order when pulling the reply out of a response
var replyFields = []string{"output", "reply", "message", "text"}

// AssistantClient implements domain.AssistantClient against a chat webhook
type AssistantClient struct {
	client *http.Client
	url    string
}

// Ensure AssistantClient implements domain.AssistantClient
var _ domain.AssistantClient = (*AssistantClient)(nil)

// NewAssistantClient creates an AssistantClient posting to url
func NewAssistantClient(url string, timeout time.Duration) *AssistantClient {
	return &AssistantClient{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

type assistantRequest struct {
	SessionID   string `json:"sessionId"`
	UserMessage string `json:"userMessage"`
}

// Send posts one user message and returns the assistant's reply text
func (c *AssistantClient) Send(ctx context.Context, sessionID, message string) (string, error) {
	payload, err := json.Marshal(assistantRequest{SessionID: sessionID, UserMessage: message})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach assistant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", domain.ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read assistant reply: %w", err)
	}

	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}

	return ExtractReply(decoded), nil
}

// ExtractReply finds the reply text in a decoded assistant response. It accepts
// a bare string, an object, or an array whose first element is an object, and
// falls back to a generic acknowledgement.
func ExtractReply(decoded interface{}) string {
	switch v := decoded.(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]interface{}); ok {
				return replyFromObject(obj)
			}
		}
	case map[string]interface{}:
		return replyFromObject(v)
	}
	return domain.AssistantFallbackReply
}

func replyFromObject(obj map[string]interface{}) string {
	for _, field := range replyFields {
		if s, ok := obj[field].(string); ok && s != "" {
			return s
		}
	}
	return domain.AssistantFallbackReply
}
