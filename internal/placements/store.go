package placements

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/doogybook/backend/internal/models"
)

// Store runs workflow steps atomically.
type Store interface {
	// WithinTx runs fn in one transaction. Any error from fn discards every write made through tx.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	// History returns a dog's placement entries, newest first.
	History(ctx context.Context, dogID uuid.UUID) ([]models.Placement, error)
}

// Tx is the set of reads and writes available inside a workflow transaction.
type Tx interface {
	// LockDog loads the dog and holds it until the transaction ends. Missing dogs give ErrDogNotFound.
	LockDog(ctx context.Context, dogID uuid.UUID) (*models.Dog, error)
	// GetContact loads a foster contact. Missing contacts give ErrContactNotFound.
	GetContact(ctx context.Context, contactID uuid.UUID) (*models.FosterContact, error)
	// ActiveFosterPlacement returns the dog's open foster entry, or nil.
	ActiveFosterPlacement(ctx context.Context, dogID uuid.UUID) (*models.Placement, error)
	// InsertPlacement appends p and fills its ID and CreatedAt.
	InsertPlacement(ctx context.Context, p *models.Placement) error
	// ClosePlacement completes an active entry.
	ClosePlacement(ctx context.Context, id uuid.UUID, endedAt time.Time, reason string) error
	// SetFoster points the dog at a foster contact, or clears both pointers when contactID is nil.
	SetFoster(ctx context.Context, dogID uuid.UUID, contactID, userID *uuid.UUID) error
	// MarkAdopted hands the dog to ownerID and clears organization and foster pointers.
	MarkAdopted(ctx context.Context, dogID, ownerID uuid.UUID) error
	// IncrementContactDogs adds one hosted dog unless the contact is full. It reports whether it did.
	IncrementContactDogs(ctx context.Context, contactID uuid.UUID) (bool, error)
	// DecrementContactDogs removes one hosted dog, never going below zero.
	DecrementContactDogs(ctx context.Context, contactID uuid.UUID) error
}
