package model

import (
	"time"
)

// MemorySource identifies where a memory originated.
type MemorySource string

const (
	SourceConversation MemorySource = "conversation"
	SourceVoice        MemorySource = "voice"
)

// DefaultImportance is the importance assigned to memories recorded from a
// voice exchange before any revision.
const DefaultImportance = 50

// Well-known memory tags.
const (
	TagVoiceSearch = "voice-search"
	TagProperty    = "property"
)

// Memory is a semantically searchable unit derived from a conversation.
// Importance may be revised after creation; the access counter increments
// each time the memory is returned by recall.
type Memory struct {
	ID             string       `json:"id"`
	SpaceID        string       `json:"memorySpaceId"`
	ConversationID string       `json:"conversationId,omitempty"`
	Content        string       `json:"content"`
	ContentType    string       `json:"contentType"`
	Source         MemorySource `json:"source"`
	Importance     int          `json:"importance"`
	Tags           []string     `json:"tags,omitempty"`
	Version        int          `json:"version"`
	AccessCount    int          `json:"accessCount"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}
