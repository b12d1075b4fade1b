package model

import (
	"time"
)

// InteractionType classifies a property interaction event.
type InteractionType string

const (
	InteractionVoiceQuery   InteractionType = "voice_query"
	InteractionPropertyView InteractionType = "property_view"
)

// PropertyInteraction is an immutable log entry of one property-related
// event. Entries are append-only; corrections are expressed as new entries.
type PropertyInteraction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	SpaceID         string          `json:"memorySpaceId"`
	PropertyID      string          `json:"propertyId"`
	InteractionType InteractionType `json:"interactionType"`
	PropertyContext map[string]any  `json:"propertyContext,omitempty"`
	Query           string          `json:"query,omitempty"`
	Version         int             `json:"version"`
	Timestamp       time.Time       `json:"timestamp"`
}
