package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionPrefix = "session_"
	messagePrefix = "msg_"

	// SessionTTL is how long an idle conversation is kept
	SessionTTL           = 30 * time.Minute
	sessionSweepInterval = time.Minute
)

type conversation struct {
	messages []domain.ChatMessage
	busy     bool
	lastSeen time.Time
}

// AssistantService relays chat messages to the assistant and keeps each
// session's conversation in memory until it has been idle for SessionTTL
type AssistantService struct {
	client    domain.AssistantClient
	sessions  map[string]*conversation
	lastSweep time.Time
	mu        sync.Mutex
	now       func() time.Time
}

// NewAssistantService creates a new AssistantService. A nil client leaves the assistant disabled.
func NewAssistantService(client domain.AssistantClient) *AssistantService {
	return &AssistantService{
		client:   client,
		sessions: make(map[string]*conversation),
		now:      time.Now,
	}
}

// Enabled reports whether an assistant endpoint is configured
func (s *AssistantService) Enabled() bool {
	return s.client != nil
}

// NewSessionID returns an opaque, best-effort unique session identifier
func (s *AssistantService) NewSessionID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return sessionPrefix + random + strconv.FormatInt(s.now().UnixMilli(), 36)
}

func (s *AssistantService) newMessage(role domain.ChatRole, text string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        messagePrefix + uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: s.now().UTC(),
	}
}

// SendMessage appends the user's message to the session, relays it and
// appends the reply. Assistant failures become a system message in the
// conversation rather than an error. A session allows one message in flight.
func (s *AssistantService) SendMessage(ctx context.Context, sessionID, text string) (*domain.ChatExchange, error) {
	if !s.Enabled() {
		return nil, domain.ErrAssistantDisabled
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > domain.MaxMessageLength {
		return nil, domain.ErrMessageTooLong
	}
	if sessionID == "" {
		sessionID = s.NewSessionID()
	}

	userMessage := s.newMessage(domain.ChatRoleUser, text)

	s.mu.Lock()
	now := s.now()
	s.sweepLocked(now)
	conv, ok := s.sessions[sessionID]
	if !ok {
		conv = &conversation{}
		s.sessions[sessionID] = conv
	}
	if conv.busy {
		s.mu.Unlock()
		return nil, domain.ErrAssistantBusy
	}
	conv.busy = true
	conv.lastSeen = now
	conv.messages = append(conv.messages, userMessage)
	s.mu.Unlock()

	var answer domain.ChatMessage
	reply, err := s.client.Send(ctx, sessionID, text)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID).
			Msg("Assistant request failed")
		answer = s.newMessage(domain.ChatRoleSystem, domain.AssistantErrorMessage)
	} else {
		answer = s.newMessage(domain.ChatRoleAssistant, reply)
	}

	s.mu.Lock()
	conv.messages = append(conv.messages, answer)
	conv.busy = false
	conv.lastSeen = s.now()
	s.mu.Unlock()

	return &domain.ChatExchange{
		SessionID: sessionID,
		Messages:  []domain.ChatMessage{userMessage, answer},
	}, nil
}

// History returns a copy of the session's conversation, oldest first
func (s *AssistantService) History(sessionID string) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.sessions[sessionID]
	if !ok || s.expired(conv, s.now()) {
		return []domain.ChatMessage{}
	}
	return append([]domain.ChatMessage{}, conv.messages...)
}

// SessionCount returns the number of conversations held in memory
func (s *AssistantService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *AssistantService) expired(conv *conversation, now time.Time) bool {
	return !conv.busy && now.Sub(conv.lastSeen) > SessionTTL
}

// sweepLocked forgets idle conversations, at most once per sweep interval.
// Callers hold s.mu.
func (s *AssistantService) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < sessionSweepInterval {
		return
	}
	s.lastSweep = now

	for id, conv := range s.sessions {
		if s.expired(conv, now) {
			delete(s.sessions, id)
		}
	}
}
