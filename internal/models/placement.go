package models

import (
	"time"

	"github.com/google/uuid"
)

// PlacementType distinguishes temporary foster custody from a final adoption.
type PlacementType string

const (
	PlacementFoster   PlacementType = "foster"
	PlacementAdoption PlacementType = "adoption"
)

// PlacementStatus is the state of a placement history entry.
type PlacementStatus string

const (
	PlacementActive    PlacementStatus = "active"
	PlacementCompleted PlacementStatus = "completed"
)

// End reasons recorded when a placement is closed.
const (
	EndReasonReturned = "returned"
	EndReasonAdopted  = "adopted"
)

// Placement is one custody period in a dog's placement history.
// Entries are append-only; the close transition (active -> completed) is the only update.
type Placement struct {
	ID             uuid.UUID       `json:"id"`
	DogID          uuid.UUID       `json:"dog_id"`
	ContactID      *uuid.UUID      `json:"contact_id,omitempty"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	PlacementType  PlacementType   `json:"placement_type"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	Status         PlacementStatus `json:"status"`
	EndReason      *string         `json:"end_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsActiveFoster reports whether p is an open foster placement.
func (p *Placement) IsActiveFoster() bool {
	return p.Status == PlacementActive && p.PlacementType == PlacementFoster
}

// PlacementEventKind names a committed workflow transition.
type PlacementEventKind string

const (
	EventFosterPlaced      PlacementEventKind = "foster_placed"
	EventFosterReturned    PlacementEventKind = "foster_returned"
	EventAdoptionCompleted PlacementEventKind = "adoption_completed"
)

// PlacementEvent is emitted after a placement operation commits.
type PlacementEvent struct {
	Kind           PlacementEventKind `json:"kind"`
	DogID          uuid.UUID          `json:"dog_id"`
	DogName        string             `json:"dog_name"`
	OrganizationID uuid.UUID          `json:"organization_id"`
	ContactID      *uuid.UUID         `json:"contact_id,omitempty"`
	FosterUserID   *uuid.UUID         `json:"foster_user_id,omitempty"`
	AdopterID      *uuid.UUID         `json:"adopter_id,omitempty"`
	ActorID        uuid.UUID          `json:"actor_id"`
	At             time.Time          `json:"at"`
}
