package model

import (
	"time"
)

// Predicates used by extracted preference facts.
const (
	PredicatePrefers  = "prefers"
	PredicateDislikes = "dislikes"
)

// Fact is an extracted (subject, predicate, object) assertion about a user
// with a confidence between 0 and 100. Facts are an append-only evidence
// trail; the compacted view used for ranking lives in SuburbPreference.
type Fact struct {
	ID         string    `json:"id"`
	SpaceID    string    `json:"memorySpaceId"`
	Fact       string    `json:"fact"`
	Subject    string    `json:"subject"`
	Predicate  string    `json:"predicate"`
	Object     string    `json:"object"`
	Confidence int       `json:"confidence"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
