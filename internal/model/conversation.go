package model

import (
	"time"
)

// Role represents the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is a single ordered turn inside a conversation.
type ConversationMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one recorded agent exchange. It is created atomically with
// its companion Memory and is immutable once written, except for appending
// later turns of the same exchange.
type Conversation struct {
	ID           string                `json:"id"`
	SpaceID      string                `json:"memorySpaceId"`
	Messages     []ConversationMessage `json:"messages"`
	MessageCount int                   `json:"messageCount"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}
