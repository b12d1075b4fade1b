package model

import (
	"encoding/json"
	"time"
)

// RememberRequest is the request to record one voice/chat exchange.
type RememberRequest struct {
	UserID          string         `json:"userId"`
	UserQuery       string         `json:"userQuery"`
	AgentResponse   string         `json:"agentResponse"`
	PropertyID      string         `json:"propertyId,omitempty"`
	PropertyContext map[string]any `json:"propertyContext,omitempty"`
}

// RememberResult identifies the records written by a remember call.
type RememberResult struct {
	ConversationID string `json:"conversationId"`
	MemoryID       string `json:"memoryId"`
	SpaceID        string `json:"memorySpaceId"`
}

// StorePreferenceRequest is the request to record an extracted preference.
type StorePreferenceRequest struct {
	UserID     string          `json:"userId"`
	Category   string          `json:"category"`
	Preference string          `json:"preference"`
	Confidence int             `json:"confidence"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// RecallRequest is the request for ranked recall.
type RecallRequest struct {
	UserID string `json:"userId"`
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
}

// MemoryRecall is the narrow projection of a Memory returned by recall.
type MemoryRecall struct {
	Content     string    `json:"content"`
	ContentType string    `json:"contentType"`
	Source      string    `json:"source"`
	Importance  int       `json:"importance"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FactRecall is the narrow projection of a Fact returned by recall.
type FactRecall struct {
	Fact       string `json:"fact"`
	Subject    string `json:"subject"`
	Predicate  string `json:"predicate"`
	Object     string `json:"object"`
	Confidence int    `json:"confidence"`
	Category   string `json:"category"`
}

// PropertyInteractionRecall is the projection of a PropertyInteraction.
type PropertyInteractionRecall struct {
	PropertyID      string         `json:"propertyId"`
	InteractionType string         `json:"interactionType"`
	PropertyContext map[string]any `json:"propertyContext,omitempty"`
	Query           string         `json:"query,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// SuburbPreferenceRecall is the projection of a SuburbPreference.
type SuburbPreferenceRecall struct {
	SuburbName       string `json:"suburbName"`
	State            string `json:"state"`
	PreferenceScore  int    `json:"preferenceScore"`
	InteractionCount int    `json:"interactionCount"`
}

// RecallResult holds the four candidate lists returned by recall. A user
// with no history produces four empty lists, never an error.
type RecallResult struct {
	Memories             []MemoryRecall              `json:"memories"`
	Facts                []FactRecall                `json:"facts"`
	PropertyInteractions []PropertyInteractionRecall `json:"propertyInteractions"`
	SuburbPreferences    []SuburbPreferenceRecall    `json:"suburbPreferences"`
}
