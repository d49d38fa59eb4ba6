package chat

import (
	"time"

	"github.com/google/uuid"
)

// ModelConfig carries per-session sampling parameters.
type ModelConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type Session struct {
	ID             string       `json:"id"`
	Title          string       `json:"title,omitempty"`
	Model          string       `json:"model,omitempty"`
	ModelConfig    *ModelConfig `json:"model_config,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	LastAccessedAt time.Time    `json:"last_accessed_at"`
	UpdatedAt      time.Time    `json:"updated_at,omitempty"`
	Branches       []string     `json:"branches,omitempty"`

	// MessageCount is a cache for sessions listed without their messages
	// loaded. Whenever Messages is populated the list is authoritative;
	// every store mutation keeps the two consistent.
	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages,omitempty"`
}

func NewSession(model, title string) Session {
	now := time.Now()
	return Session{
		ID:             uuid.NewString(),
		Title:          title,
		Model:          model,
		CreatedAt:      now,
		LastAccessedAt: now,
		Messages:       make([]Message, 0),
	}
}

// Count returns the number of messages, preferring the loaded list over
// the cached count.
func (s Session) Count() int {
	if s.Messages != nil {
		return len(s.Messages)
	}
	return s.MessageCount
}

func (s Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

func (s Session) LastAssistantMessage() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].IsAssistant() {
			return s.Messages[i], true
		}
	}
	return Message{}, false
}

func (s Session) IsEmpty() bool {
	return s.Count() == 0
}
