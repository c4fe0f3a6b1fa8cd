package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a shelter or rescue that lists dogs for adoption.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	City      string    `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Staff roles inside an organization.
const (
	OrgRoleOwner     = "owner"
	OrgRoleManager   = "manager"
	OrgRoleVolunteer = "volunteer"
)

// OrganizationUser links a user to an organization with a staff role.
type OrganizationUser struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	UserID         uuid.UUID `json:"user_id"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
