package api

import (
	"context"
	"fmt"

	"github.com/parleychat/parley/pkg/chat"
)

// ChatRequest carries one send cycle's conversation and options.
type ChatRequest struct {
	SessionID string           `json:"session_id,omitempty"`
	Messages  []chat.Message   `json:"messages"`
	Options   chat.SendOptions `json:"options"`
}

// RegenerateRequest asks the provider to re-answer an existing message.
type RegenerateRequest struct {
	SessionID string           `json:"session_id"`
	MessageID string           `json:"message_id"`
	Options   chat.SendOptions `json:"options"`
}

// ChatClient is the facade the rest of the program talks through.
type ChatClient interface {
	GetSessions(ctx context.Context) ([]chat.Session, error)
	SendMessage(ctx context.Context, req ChatRequest) (chat.Message, error)
	GetHistory(ctx context.Context, sessionID string) ([]chat.Message, error)
	RegenerateMessage(ctx context.Context, req RegenerateRequest) (chat.Message, error)
}

// StreamingChatClient extends ChatClient with streaming. Each call starts
// a fresh chunk sequence; the channel is closed after a done chunk, an
// error chunk, or context cancellation.
type StreamingChatClient interface {
	ChatClient
	StreamMessage(ctx context.Context, req ChatRequest) (<-chan chat.Chunk, error)
}

// TransportError reports the call itself failing: network, HTTP status,
// or a malformed response. Distinct from an error the provider streams back.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StreamError is an explicit error payload received mid-stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error: %s", e.Message)
}
