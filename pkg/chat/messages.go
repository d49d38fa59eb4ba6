package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleError     = "error"
)

func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   strings.TrimSpace(content),
		Timestamp: time.Now(),
	}
}

func NewAssistantMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewSystemMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleSystem,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func NewErrorMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleError,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

func (m Message) IsError() bool {
	return m.Role == RoleError
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

// WithContent returns a copy carrying the given content. Streaming folds
// deltas by replacing the last message with a copy, so a reader holding
// the old value never observes a half-written one.
func (m Message) WithContent(content string) Message {
	return Message{
		ID:        m.ID,
		Role:      m.Role,
		Content:   content,
		Timestamp: m.Timestamp,
	}
}
