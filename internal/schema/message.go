// Package schema defines the data types shared across the session store,
// the turn pipeline and the oracle providers.
package schema

import "time"

// Role identifies the author of a session message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session's raw history. Messages are immutable
// once created and append-only within a session.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// NewUserMessage creates a user message stamped with ts.
func NewUserMessage(content string, ts time.Time) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: &ts}
}

// NewAssistantMessage creates an assistant message stamped with ts.
func NewAssistantMessage(content string, ts time.Time) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: &ts}
}

// PromptMessage is a single role-tagged entry sent to the oracle. Unlike
// Message it may carry the "system" role, which never appears in a
// session's raw history.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemPrompt(content string) PromptMessage {
	return PromptMessage{Role: "system", Content: content}
}

func UserPrompt(content string) PromptMessage {
	return PromptMessage{Role: "user", Content: content}
}
