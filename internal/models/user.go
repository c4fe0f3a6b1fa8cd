package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the account type of a platform user.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleOrganization Role = "organization"
	RoleIndividual   Role = "individual"
)

// User is a platform account. Individual accounts are the adopters of the placement workflow.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	City      string    `json:"city,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	City      string    `json:"city,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		City:      u.City,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// AdopterAccount is the read-only view of a user receiving a dog.
type AdopterAccount struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	City     string    `json:"city,omitempty"`
}

// ToAdopter converts User to AdopterAccount.
func (u *User) ToAdopter() AdopterAccount {
	return AdopterAccount{ID: u.ID, Email: u.Email, FullName: u.FullName, City: u.City}
}

// NormalizeEmail trims and lower-cases an email address for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
