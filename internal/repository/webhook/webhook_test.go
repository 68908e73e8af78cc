package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSource_FetchRecords(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[{"row_number":1,"anio":2024,"mes":"ENERO","presupuesto":1000,"real":800}]`, 1},
		{"Data wrapper", `{"Data":[{"row_number":1},{"row_number":2}],"Count":2}`, 2},
		{"data wrapper", `{"data":[{"row_number":1}]}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			source := NewRecordSource(server.URL, time.Second)
			records, err := source.FetchRecords(context.Background())

			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestRecordSource_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewRecordSource(server.URL, time.Second).FetchRecords(context.Background())

	assert.ErrorIs(t, err, domain.ErrUpstreamStatus)
}

func TestRecordSource_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := NewRecordSource(server.URL, time.Second).FetchRecords(context.Background())

	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestRecordSource_SingleAttempt(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewRecordSource(server.URL, time.Second).FetchRecords(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRecordSource_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewRecordSource(url, time.Second).FetchRecords(context.Background())

	assert.Error(t, err)
}

func TestAssistantClient_Send(t *testing.T) {
	var received assistantRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`[{"output":"El gasto real fue 800"}]`))
	}))
	defer server.Close()

	reply, err := NewAssistantClient(server.URL, time.Second).Send(context.Background(), "session_abc", "¿Cuánto gasté?")

	require.NoError(t, err)
	assert.Equal(t, "El gasto real fue 800", reply)
	assert.Equal(t, "session_abc", received.SessionID)
	assert.Equal(t, "¿Cuánto gasté?", received.UserMessage)
}

func TestAssistantClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewAssistantClient(server.URL, time.Second).Send(context.Background(), "s", "hola")

	assert.ErrorIs(t, err, domain.ErrUpstreamStatus)
}

func TestAssistantClient_NonJSONReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`plain text`))
	}))
	defer server.Close()

	_, err := NewAssistantClient(server.URL, time.Second).Send(context.Background(), "s", "hola")

	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bare string", `"hola"`, "hola"},
		{"object output", `{"output":"a"}`, "a"},
		{"object reply", `{"reply":"b"}`, "b"},
		{"object message", `{"message":"c"}`, "c"},
		{"object text", `{"text":"d"}`, "d"},
		{"field order", `{"text":"d","reply":"b","output":"a"}`, "a"},
		{"empty field skipped", `{"output":"","message":"c"}`, "c"},
		{"array first element", `[{"reply":"x"},{"reply":"y"}]`, "x"},
		{"empty array", `[]`, domain.AssistantFallbackReply},
		{"array of strings", `["x"]`, domain.AssistantFallbackReply},
		{"object without fields", `{"foo":"bar"}`, domain.AssistantFallbackReply},
		{"non-string field", `{"output":42}`, domain.AssistantFallbackReply},
		{"number", `7`, domain.AssistantFallbackReply},
		{"null", `null`, domain.AssistantFallbackReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var decoded interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.body), &decoded))
			assert.Equal(t, tt.want, ExtractReply(decoded))
		})
	}
}
