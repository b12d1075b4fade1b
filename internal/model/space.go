// Package model defines data structures for the cortex memory engine.
package model

import (
	"time"
)

// User represents a platform account. Accounts are created at signup; the
// memory-space link is attached lazily on the first recorded interaction.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email,omitempty"`
	Name          string    `json:"name,omitempty"`
	MemorySpaceID string    `json:"memorySpaceId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SpaceStatus represents the lifecycle state of a memory space.
type SpaceStatus string

const (
	SpaceStatusActive   SpaceStatus = "active"
	SpaceStatusArchived SpaceStatus = "archived"
)

// IsValid returns true if the space status is recognized.
func (s SpaceStatus) IsValid() bool {
	return s == SpaceStatusActive || s == SpaceStatusArchived
}

// MemorySpace is a private container for one user's agent memory. Each user
// has at most one space; spaces are never deleted in normal operation.
type MemorySpace struct {
	ID           string      `json:"id"`
	Participants []string    `json:"participants"`
	Status       SpaceStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}
