package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactType is the role a contact plays for the organization.
type ContactType string

const (
	ContactFosterFamily ContactType = "foster_family"
	ContactBoth         ContactType = "both"
	ContactVolunteer    ContactType = "volunteer"
	ContactVet          ContactType = "vet"
	ContactOther        ContactType = "other"
)

// Valid reports whether t is a known contact type.
func (t ContactType) Valid() bool {
	switch t {
	case ContactFosterFamily, ContactBoth, ContactVolunteer, ContactVet, ContactOther:
		return true
	}
	return false
}

// CanFoster reports whether contacts of this type may take dogs in foster care.
func (t ContactType) CanFoster() bool {
	return t == ContactFosterFamily || t == ContactBoth
}

const (
	ContactStatusActive   = "active"
	ContactStatusInactive = "inactive"

	AvailabilityAvailable   = "available"
	AvailabilityUnavailable = "unavailable"
)

// FosterContact is an organization's contact that can host dogs.
// Invariant: 0 <= CurrentDogsCount <= MaxDogs.
type FosterContact struct {
	ID                uuid.UUID   `json:"id"`
	OrganizationID    uuid.UUID   `json:"organization_id"`
	LinkedUserID      *uuid.UUID  `json:"linked_user_id,omitempty"`
	FullName          string      `json:"full_name"`
	Email             string      `json:"email,omitempty"`
	Phone             string      `json:"phone,omitempty"`
	City              string      `json:"city"`
	Type              ContactType `json:"type"`
	Status            string      `json:"status"`
	Availability      string      `json:"availability"`
	CurrentDogsCount  int         `json:"current_dogs_count"`
	MaxDogs           int         `json:"max_dogs"`
	TotalDogsFostered int         `json:"total_dogs_fostered"`
	HousingType       string      `json:"housing_type,omitempty"`
	HasGarden         bool        `json:"has_garden"`
	PreferredSize     string      `json:"preferred_size,omitempty"`
	Notes             string      `json:"notes,omitempty"`
	Rating            *int        `json:"rating,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// HasCapacity reports whether the contact can take one more dog.
func (c *FosterContact) HasCapacity() bool {
	return c.CurrentDogsCount < c.MaxDogs
}

// Eligible reports whether the contact may receive a foster placement right now.
func (c *FosterContact) Eligible() bool {
	return c.Type.CanFoster() &&
		c.Status == ContactStatusActive &&
		c.Availability == AvailabilityAvailable &&
		c.HasCapacity()
}
