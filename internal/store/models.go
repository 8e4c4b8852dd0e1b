package store

import (
	"time"

	"scopilot/api/internal/scoping"
)

type User struct {
	ID            string
	DisplayName   string
	Email         string
	PasswordHash  string
	Role          string
	IsExternal    bool
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProjectSummary is the dashboard row: metadata plus the denormalized
// current phase, without the data blob.
type ProjectSummary struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	OwnerID      string        `json:"ownerId"`
	OwnerName    string        `json:"ownerName"`
	CurrentPhase scoping.Phase `json:"currentPhase"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
