package types

import "fmt"

// Role represents the role of a message participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Query is one question-answer exchange as received from the caller.
// Immutable once constructed; scoped to a single request.
type Query struct {
	Text    string    `json:"text"`
	History []Message `json:"history,omitempty"`
}

// ValidateHistory rejects history entries whose role is not user or assistant.
// System turns are composed internally and must never arrive from the caller.
func ValidateHistory(history []Message) error {
	for i, m := range history {
		switch m.Role {
		case RoleUser, RoleAssistant:
		default:
			return NewError(ErrInvalidRequest,
				fmt.Sprintf("chat_history[%d]: unsupported role %q", i, m.Role))
		}
	}
	return nil
}
