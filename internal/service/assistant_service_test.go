package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantService_NewSessionID(t *testing.T) {
	svc := NewAssistantService(testutil.NewMockAssistantClient("ok"))

	first := svc.NewSessionID()
	second := svc.NewSessionID()

	assert.True(t, strings.HasPrefix(first, "session_"))
	assert.Greater(t, len(first), len("session_")+9)
	assert.NotEqual(t, first, second)
}

func TestAssistantService_SendMessage(t *testing.T) {
	client := testutil.NewMockAssistantClient("El desvío total es 200")
	svc := NewAssistantService(client)

	exchange, err := svc.SendMessage(context.Background(), "session_abc", "  ¿Cuál es el desvío?  ")

	require.NoError(t, err)
	assert.Equal(t, "session_abc", exchange.SessionID)
	require.Len(t, exchange.Messages, 2)

	user, reply := exchange.Messages[0], exchange.Messages[1]
	assert.Equal(t, domain.ChatRoleUser, user.Role)
	assert.Equal(t, "¿Cuál es el desvío?", user.Text)
	assert.True(t, strings.HasPrefix(user.ID, "msg_"))
	assert.Equal(t, domain.ChatRoleAssistant, reply.Role)
	assert.Equal(t, "El desvío total es 200", reply.Text)
	assert.NotEqual(t, user.ID, reply.ID)

	sent := client.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "session_abc", sent[0].SessionID)
	assert.Equal(t, "¿Cuál es el desvío?", sent[0].Message)
}

func TestAssistantService_SendMessage_CreatesSession(t *testing.T) {
	svc := NewAssistantService(testutil.NewMockAssistantClient("hola"))

	exchange, err := svc.SendMessage(context.Background(), "", "hola")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(exchange.SessionID, "session_"))
	assert.Len(t, svc.History(exchange.SessionID), 2)
}

func TestAssistantService_SendMessage_Validation(t *testing.T) {
	client := testutil.NewMockAssistantClient("ok")
	svc := NewAssistantService(client)

	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"empty", "", domain.ErrEmptyMessage},
		{"whitespace only", " \n\t ", domain.ErrEmptyMessage},
		{"too long", strings.Repeat("a", domain.MaxMessageLength+1), domain.ErrMessageTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(context.Background(), "session_x", tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, client.SentMessages())
	assert.Empty(t, svc.History("session_x"))
}

func TestAssistantService_SendMessage_FailureBecomesSystemMessage(t *testing.T) {
	client := &testutil.MockAssistantClient{Err: errors.New("502 bad gateway")}
	svc := NewAssistantService(client)

	exchange, err := svc.SendMessage(context.Background(), "session_x", "hola")

	require.NoError(t, err)
	require.Len(t, exchange.Messages, 2)
	assert.Equal(t, domain.ChatRoleSystem, exchange.Messages[1].Role)
	assert.Equal(t, domain.AssistantErrorMessage, exchange.Messages[1].Text)

	history := svc.History("session_x")
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChatRoleSystem, history[1].Role)
}

func TestAssistantService_SendMessage_OneInFlightPerSession(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	client := testutil.NewMockAssistantClient("")
	client.SendFn = func(ctx context.Context, sessionID, message string) (string, error) {
		if message == "first" {
			close(entered)
			<-release
		}
		return "reply to " + message, nil
	}
	svc := NewAssistantService(client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.SendMessage(context.Background(), "session_a", "first")
		assert.NoError(t, err)
	}()
	<-entered

	_, err := svc.SendMessage(context.Background(), "session_a", "second")
	assert.ErrorIs(t, err, domain.ErrAssistantBusy)

	// Other sessions are independent
	_, err = svc.SendMessage(context.Background(), "session_b", "other")
	assert.NoError(t, err)

	close(release)
	wg.Wait()

	_, err = svc.SendMessage(context.Background(), "session_a", "third")
	require.NoError(t, err)

	texts := make([]string, 0)
	for _, msg := range svc.History("session_a") {
		texts = append(texts, msg.Text)
	}
	assert.Equal(t, []string{"first", "reply to first", "third", "reply to third"}, texts)
}

func TestAssistantService_History(t *testing.T) {
	svc := NewAssistantService(testutil.NewMockAssistantClient("ok"))
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	assert.Empty(t, svc.History("unknown"))

	_, err := svc.SendMessage(context.Background(), "session_x", "uno")
	require.NoError(t, err)
	_, err = svc.SendMessage(context.Background(), "session_x", "dos")
	require.NoError(t, err)

	history := svc.History("session_x")
	require.Len(t, history, 4)
	assert.Equal(t, "uno", history[0].Text)
	assert.Equal(t, "dos", history[2].Text)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), history[0].Timestamp)

	// Returned slice is a copy
	history[0].Text = "changed"
	assert.Equal(t, "uno", svc.History("session_x")[0].Text)
}

func TestAssistantService_Disabled(t *testing.T) {
	svc := NewAssistantService(nil)

	assert.False(t, svc.Enabled())
	_, err := svc.SendMessage(context.Background(), "session_x", "hola")
	assert.ErrorIs(t, err, domain.ErrAssistantDisabled)
}

func TestAssistantService_IdleSessionsExpire(t *testing.T) {
	svc := NewAssistantService(testutil.NewMockAssistantClient("ok"))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, err := svc.SendMessage(context.Background(), "session_old", "hola")
	require.NoError(t, err)
	require.Len(t, svc.History("session_old"), 2)

	now = now.Add(SessionTTL + time.Minute)
	assert.Empty(t, svc.History("session_old"), "expired before the next sweep")

	_, err = svc.SendMessage(context.Background(), "session_new", "hola")
	require.NoError(t, err)

	assert.Equal(t, 1, svc.SessionCount())
	assert.Len(t, svc.History("session_new"), 2)
}

func TestAssistantService_RotatingSessionsAreForgotten(t *testing.T) {
	svc := NewAssistantService(testutil.NewMockAssistantClient("ok"))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 20; i++ {
		_, err := svc.SendMessage(context.Background(), svc.NewSessionID()+strconv.Itoa(i), "hola")
		require.NoError(t, err)
	}
	assert.Equal(t, 20, svc.SessionCount())

	now = now.Add(SessionTTL + time.Minute)
	_, err := svc.SendMessage(context.Background(), "session_last", "hola")
	require.NoError(t, err)

	assert.Equal(t, 1, svc.SessionCount())
}

func TestAssistantService_ActiveSessionIsKept(t *testing.T) {
	svc := NewAssistantService(testutil.NewMockAssistantClient("ok"))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(context.Background(), "session_x", "hola")
		require.NoError(t, err)
		now = now.Add(SessionTTL / 2)
	}

	assert.Len(t, svc.History("session_x"), 6)
}
