package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/middleware"
	"github.com/dafibh/tablero/tablero-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AssistantHandler relays chat messages to the AI assistant
type AssistantHandler struct {
	assistantService *service.AssistantService
}

// NewAssistantHandler creates a new AssistantHandler
func NewAssistantHandler(assistantService *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{
		assistantService: assistantService,
	}
}

// SendMessageRequest represents the request body for sending a chat message
type SendMessageRequest struct {
	Message string `json:"message"`
}

// ChatMessageResponse represents one chat message in API response
type ChatMessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationResponse represents chat messages of one session
type ConversationResponse struct {
	SessionID string                `json:"sessionId"`
	Messages  []ChatMessageResponse `json:"messages"`
}

func toConversationResponse(sessionID string, messages []domain.ChatMessage) ConversationResponse {
	result := make([]ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		result = append(result, ChatMessageResponse{
			ID:        m.ID,
			Role:      string(m.Role),
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}
	return ConversationResponse{SessionID: sessionID, Messages: result}
}

// SendMessage handles POST /api/v1/assistant/messages
// @Summary Send a message to the assistant
// @Description Relays the message and returns it together with the reply. Assistant failures come back as a system message.
// @Tags assistant
// @Accept json
// @Produce json
// @Param X-Session-ID header string false "Session ID; a new one is issued when absent"
// @Param request body SendMessageRequest true "Chat message"
// @Success 200 {object} ConversationResponse
// @Failure 400 {object} ProblemDetails
// @Failure 409 {object} ProblemDetails
// @Failure 429 {object} ProblemDetails
// @Failure 503 {object} ProblemDetails
// @Router /assistant/messages [post]
func (h *AssistantHandler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	sessionID := strings.TrimSpace(c.Request().Header.Get(middleware.SessionIDHeader))

	exchange, err := h.assistantService.SendMessage(c.Request().Context(), sessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage):
			return NewValidationError(c, "Message is required", []ValidationError{{Field: "message", Message: "Must not be empty"}})
		case errors.Is(err, domain.ErrMessageTooLong):
			return NewValidationError(c, "Message is too long", []ValidationError{{Field: "message", Message: fmt.Sprintf("Must be at most %d characters", domain.MaxMessageLength)}})
		case errors.Is(err, domain.ErrAssistantBusy):
			return NewConflictError(c, err.Error())
		case errors.Is(err, domain.ErrAssistantDisabled):
			return NewServiceUnavailableError(c, err.Error())
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to send assistant message")
		return NewInternalError(c, "Failed to send message")
	}

	c.Response().Header().Set(middleware.SessionIDHeader, exchange.SessionID)
	return c.JSON(http.StatusOK, toConversationResponse(exchange.SessionID, exchange.Messages))
}

// GetMessages handles GET /api/v1/assistant/messages
// @Summary Get the conversation
// @Tags assistant
// @Produce json
// @Param X-Session-ID header string true "Session ID"
// @Success 200 {object} ConversationResponse
// @Failure 400 {object} ProblemDetails
// @Router /assistant/messages [get]
func (h *AssistantHandler) GetMessages(c echo.Context) error {
	sessionID := strings.TrimSpace(c.Request().Header.Get(middleware.SessionIDHeader))
	if sessionID == "" {
		return NewValidationError(c, "Session ID is required", []ValidationError{{Field: middleware.SessionIDHeader, Message: "Header is required"}})
	}

	return c.JSON(http.StatusOK, toConversationResponse(sessionID, h.assistantService.History(sessionID)))
}

// NewSession handles POST /api/v1/assistant/sessions
// @Summary Start a new conversation
// @Tags assistant
// @Produce json
// @Success 201 {object} ConversationResponse
// @Router /assistant/sessions [post]
func (h *AssistantHandler) NewSession(c echo.Context) error {
	sessionID := h.assistantService.NewSessionID()
	c.Response().Header().Set(middleware.SessionIDHeader, sessionID)
	return c.JSON(http.StatusCreated, toConversationResponse(sessionID, nil))
}
