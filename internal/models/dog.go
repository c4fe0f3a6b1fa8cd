package models

import (
	"time"

	"github.com/google/uuid"
)

// AdoptionStatus is the listing state of a dog.
type AdoptionStatus string

const (
	AdoptionAvailable AdoptionStatus = "available"
	AdoptionPending   AdoptionStatus = "pending"
	AdoptionAdopted   AdoptionStatus = "adopted"
)

// Valid reports whether s is a known adoption status.
func (s AdoptionStatus) Valid() bool {
	switch s {
	case AdoptionAvailable, AdoptionPending, AdoptionAdopted:
		return true
	}
	return false
}

// Dog is a dog record with its custody pointers.
// OrganizationID is nil once the dog is adopted; OwnerUserID is set only by adoption.
type Dog struct {
	ID                    uuid.UUID      `json:"id"`
	Name                  string         `json:"name"`
	Breed                 string         `json:"breed"`
	Sex                   string         `json:"sex,omitempty"`
	BirthDate             *time.Time     `json:"birth_date,omitempty"`
	Description           string         `json:"description"`
	PhotoKey              string         `json:"photo_key,omitempty"`
	OrganizationID        *uuid.UUID     `json:"organization_id,omitempty"`
	OwnerUserID           *uuid.UUID     `json:"owner_user_id,omitempty"`
	FosterFamilyContactID *uuid.UUID     `json:"foster_family_contact_id,omitempty"`
	FosterFamilyUserID    *uuid.UUID     `json:"foster_family_user_id,omitempty"`
	AdoptionStatus        AdoptionStatus `json:"adoption_status"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// InFoster reports whether the dog currently points at a foster contact.
func (d *Dog) InFoster() bool {
	return d.FosterFamilyContactID != nil
}

// IsAdopted reports whether ownership has been transferred to an adopter.
func (d *Dog) IsAdopted() bool {
	return d.AdoptionStatus == AdoptionAdopted
}

// BelongsTo reports whether the dog is currently on the roster of orgID.
func (d *Dog) BelongsTo(orgID uuid.UUID) bool {
	return d.OrganizationID != nil && *d.OrganizationID == orgID
}
