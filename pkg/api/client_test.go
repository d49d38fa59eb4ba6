package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleychat/parley/pkg/chat"
)

func TestGetSessions(t *testing.T) {
	t.Run("should list sessions from the backend", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/api/v1/sessions", r.URL.Path)

			json.NewEncoder(w).Encode(map[string]any{
				"sessions": []chat.Session{
					{ID: "s1", Title: "alpha", MessageCount: 3},
					{ID: "s2", Title: "beta"},
				},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL)
		sessions, err := client.GetSessions(context.Background())
		require.NoError(t, err)

		require.Len(t, sessions, 2)
		assert.Equal(t, "alpha", sessions[0].Title)
		assert.Equal(t, 3, sessions[0].Count())
	})

	t.Run("should wrap a server error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "database down"})
		}))
		defer server.Close()

		client := NewClient(server.URL)
		_, err := client.GetSessions(context.Background())

		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Contains(t, transportErr.Error(), "status 500")
		assert.Contains(t, transportErr.Error(), "database down")
	})

	t.Run("should fail when the server is unreachable", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1")
		_, err := client.GetSessions(context.Background())

		var transportErr *TransportError
		assert.ErrorAs(t, err, &transportErr)
	})
}

func TestSendMessage(t *testing.T) {
	t.Run("should post the conversation and decode the reply", func(t *testing.T) {
		var received ChatRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/chat", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			json.NewEncoder(w).Encode(map[string]any{
				"data": chat.NewAssistantMessage("pong"),
			})
		}))
		defer server.Close()

		client := NewClient(server.URL)
		msg, err := client.SendMessage(context.Background(), ChatRequest{
			SessionID: "s1",
			Messages:  []chat.Message{chat.NewUserMessage("ping")},
			Options:   chat.SendOptions{Model: "qwen3:latest", Stream: true},
		})
		require.NoError(t, err)

		assert.Equal(t, "pong", msg.Content)
		assert.Equal(t, "s1", received.SessionID)
		require.Len(t, received.Messages, 1)
		assert.Equal(t, "ping", received.Messages[0].Content)

		// The non-streaming endpoint always forces stream off
		assert.False(t, received.Options.Stream)
	})
}

func TestGetHistory(t *testing.T) {
	t.Run("should fetch messages for a session", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/sessions/s1/messages", r.URL.Path)

			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"messages": []chat.Message{
						chat.NewUserMessage("q"),
						chat.NewAssistantMessage("a"),
					},
				},
			})
		}))
		defer server.Close()

		client := NewClient(server.URL)
		messages, err := client.GetHistory(context.Background(), "s1")
		require.NoError(t, err)

		require.Len(t, messages, 2)
		assert.Equal(t, chat.RoleUser, messages[0].Role)
		assert.Equal(t, chat.RoleAssistant, messages[1].Role)
	})
}

func TestRegenerateMessage(t *testing.T) {
	t.Run("should post the regenerate request", func(t *testing.T) {
		var received RegenerateRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/chat/regenerate", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			json.NewEncoder(w).Encode(map[string]any{
				"data": chat.NewAssistantMessage("take two"),
			})
		}))
		defer server.Close()

		client := NewClient(server.URL)
		msg, err := client.RegenerateMessage(context.Background(), RegenerateRequest{
			SessionID: "s1",
			MessageID: "m9",
		})
		require.NoError(t, err)

		assert.Equal(t, "take two", msg.Content)
		assert.Equal(t, "s1", received.SessionID)
		assert.Equal(t, "m9", received.MessageID)
	})
}
