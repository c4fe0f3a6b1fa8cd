package placements

import (
	"github.com/google/uuid"

	"github.com/doogybook/backend/internal/models"
)

// Phase is the step of a transfer to an adopter.
type Phase string

const (
	// PhaseLookup waits for an adopter email.
	PhaseLookup Phase = "lookup"
	// PhaseConfirm holds a located adopter until the transfer is confirmed or cancelled.
	PhaseConfirm Phase = "confirm"
)

// TransferFlow is the two-step transfer of one dog. Adopter is set only in PhaseConfirm.
// Transitions return a new value and never touch storage.
type TransferFlow struct {
	DogID   uuid.UUID              `json:"dog_id"`
	Phase   Phase                  `json:"phase"`
	Adopter *models.AdopterAccount `json:"adopter,omitempty"`
}

// NewTransferFlow starts a transfer of dogID in PhaseLookup.
func NewTransferFlow(dogID uuid.UUID) TransferFlow {
	return TransferFlow{DogID: dogID, Phase: PhaseLookup}
}

// Found moves the flow to PhaseConfirm with the located adopter.
func (f TransferFlow) Found(a models.AdopterAccount) TransferFlow {
	return TransferFlow{DogID: f.DogID, Phase: PhaseConfirm, Adopter: &a}
}

// Cancel drops the candidate and returns to PhaseLookup.
func (f TransferFlow) Cancel() TransferFlow {
	return NewTransferFlow(f.DogID)
}

// Candidate returns the adopter awaiting confirmation.
func (f TransferFlow) Candidate() (models.AdopterAccount, bool) {
	if f.Phase != PhaseConfirm || f.Adopter == nil {
		return models.AdopterAccount{}, false
	}
	return *f.Adopter, true
}
