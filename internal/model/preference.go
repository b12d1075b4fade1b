package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// CategorySuburb is the preference category that feeds the suburb score.
const CategorySuburb = "suburb"

// SuburbPreference is a running sentiment score for one (user, suburb,
// state) tuple. Writes merge into the existing row; they never insert
// duplicates. Later mentions overwrite the score, so the most recent
// stated sentiment dominates.
type SuburbPreference struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"userId"`
	SuburbName         string    `json:"suburbName"`
	State              string    `json:"state"`
	PreferenceScore    int       `json:"preferenceScore"`
	InteractionCount   int       `json:"interactionCount"`
	Reasons            []string  `json:"reasons,omitempty"`
	MentionedInQueries []string  `json:"mentionedInQueries,omitempty"`
	FirstMentionedAt   time.Time `json:"firstMentionedAt"`
	LastMentionedAt    time.Time `json:"lastMentionedAt"`
}

// SignedScore maps a 0-100 confidence to a signed preference score:
// positive above 50, negative otherwise.
func SignedScore(confidence int) int {
	if confidence > 50 {
		return confidence
	}
	return -confidence
}

// PreferenceMetadata is the decoded metadata payload of a store-preference
// call, discriminated by category so the merge logic is exhaustive.
type PreferenceMetadata interface {
	preferenceMetadata()
}

// SuburbMetadata is the structured metadata accepted for the "suburb"
// category.
type SuburbMetadata struct {
	SuburbName       string `json:"suburbName"`
	State            string `json:"state"`
	Reason           string `json:"reason,omitempty"`
	MentionedInQuery string `json:"mentionedInQuery,omitempty"`
}

func (SuburbMetadata) preferenceMetadata() {}

// GenericMetadata holds metadata for categories without a structured shape.
type GenericMetadata map[string]any

func (GenericMetadata) preferenceMetadata() {}

// DecodePreferenceMetadata decodes raw metadata according to the category.
// A suburb payload missing its suburb name decodes as generic metadata so a
// fact is still recorded without touching the suburb aggregate.
func DecodePreferenceMetadata(category string, raw json.RawMessage) (PreferenceMetadata, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	if category == CategorySuburb {
		var m SuburbMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode suburb metadata: %w", err)
		}
		if m.SuburbName != "" {
			if m.State == "" {
				m.State = "NSW"
			}
			return m, nil
		}
	}

	var g GenericMetadata
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return g, nil
}
