package placements

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doogybook/backend/internal/metrics"
	"github.com/doogybook/backend/internal/models"
)

// Operation names used in logs and metrics.
const (
	OpPlace    = "place"
	OpReturn   = "return"
	OpLookup   = "transfer_lookup"
	OpTransfer = "transfer_confirm"
)

// transferCloseReason ends a foster entry closed by an adoption. It matches a return; the
// adoption itself is recorded by its own entry with end reason "adopted".
const transferCloseReason = models.EndReasonReturned

// AdopterDirectory locates adopter accounts. A miss returns (nil, nil).
type AdopterDirectory interface {
	FindAdopterByEmail(ctx context.Context, email string) (*models.AdopterAccount, error)
}

// EventPublisher receives committed placement events.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.PlacementEvent)
}

// Outcome is the state after a committed operation.
type Outcome struct {
	Dog       *models.Dog       `json:"dog"`
	Opened    *models.Placement `json:"opened,omitempty"`
	Closed    *models.Placement `json:"closed,omitempty"`
	Completed *models.Placement `json:"completed,omitempty"`
}

// Service sequences the placement workflow: place in foster, return from foster and
// transfer to an adopter. Every operation runs in a single store transaction.
type Service struct {
	store     Store
	adopters  AdopterDirectory
	publisher EventPublisher
	metrics   *metrics.Placement
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a placement service. publisher and m may be nil.
func NewService(store Store, adopters AdopterDirectory, publisher EventPublisher, m *metrics.Placement, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		adopters:  adopters,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckPlacement reports why dog cannot be placed with contact, or nil.
// activeFoster is the dog's open foster entry, if any.
func CheckPlacement(dog *models.Dog, contact *models.FosterContact, activeFoster *models.Placement) error {
	if err := checkPlaceable(dog, activeFoster); err != nil {
		return err
	}
	return checkContact(dog, contact)
}

func checkPlaceable(dog *models.Dog, activeFoster *models.Placement) error {
	if dog.IsAdopted() {
		return ErrAlreadyAdopted
	}
	if dog.OrganizationID == nil {
		return ErrNoOrganization
	}
	if activeFoster != nil || dog.InFoster() {
		return ErrAlreadyInFoster
	}
	return nil
}

func checkContact(dog *models.Dog, contact *models.FosterContact) error {
	if contact.OrganizationID != *dog.OrganizationID {
		return ErrContactNotFound
	}
	if !contact.Type.CanFoster() || contact.Status != models.ContactStatusActive ||
		contact.Availability != models.AvailabilityAvailable {
		return ErrContactNotEligible
	}
	if !contact.HasCapacity() {
		return ErrContactAtCapacity
	}
	return nil
}

// CheckTransfer reports why dog cannot be transferred to an adopter, or nil.
func CheckTransfer(dog *models.Dog) error {
	if dog.IsAdopted() {
		return ErrAlreadyAdopted
	}
	if dog.OrganizationID == nil {
		return ErrNoOrganization
	}
	return nil
}

// Place puts a dog in foster care with contactID.
func (s *Service) Place(ctx context.Context, actorID, dogID, contactID uuid.UUID) (out *Outcome, err error) {
	defer s.observe(OpPlace, dogID, time.Now(), &err)
	if contactID == uuid.Nil {
		return nil, ErrContactRequired
	}

	now := s.now()
	var contact *models.FosterContact
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		dog, err := tx.LockDog(ctx, dogID)
		if err != nil {
			return err
		}
		active, err := tx.ActiveFosterPlacement(ctx, dogID)
		if err != nil {
			return fmt.Errorf("find active placement: %w", err)
		}
		if err := checkPlaceable(dog, active); err != nil {
			return err
		}
		contact, err = tx.GetContact(ctx, contactID)
		if err != nil {
			return err
		}
		if err := checkContact(dog, contact); err != nil {
			return err
		}

		p := &models.Placement{
			DogID:          dogID,
			ContactID:      &contact.ID,
			OrganizationID: *dog.OrganizationID,
			PlacementType:  models.PlacementFoster,
			StartDate:      now,
			Status:         models.PlacementActive,
		}
		if err := tx.InsertPlacement(ctx, p); err != nil {
			return fmt.Errorf("insert placement: %w", err)
		}
		if err := tx.SetFoster(ctx, dogID, &contact.ID, contact.LinkedUserID); err != nil {
			return fmt.Errorf("set foster pointers: %w", err)
		}
		ok, err := tx.IncrementContactDogs(ctx, contact.ID)
		if err != nil {
			return fmt.Errorf("increment contact dogs: %w", err)
		}
		if !ok {
			return ErrContactAtCapacity
		}

		dog.FosterFamilyContactID = &contact.ID
		dog.FosterFamilyUserID = contact.LinkedUserID
		dog.UpdatedAt = now
		out = &Outcome{Dog: dog, Opened: p}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.PlacementEvent{
		Kind:           models.EventFosterPlaced,
		DogID:          dogID,
		DogName:        out.Dog.Name,
		OrganizationID: out.Opened.OrganizationID,
		ContactID:      &contact.ID,
		FosterUserID:   contact.LinkedUserID,
		ActorID:        actorID,
		At:             now,
	})
	return out, nil
}

// Return ends the dog's foster care and gives custody back to its organization.
// A missing active entry is tolerated: the pointers are cleared and no counter moves.
func (s *Service) Return(ctx context.Context, actorID, dogID uuid.UUID) (out *Outcome, err error) {
	defer s.observe(OpReturn, dogID, time.Now(), &err)

	now := s.now()
	var contactID, fosterUserID *uuid.UUID
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		dog, err := tx.LockDog(ctx, dogID)
		if err != nil {
			return err
		}
		if !dog.InFoster() {
			return ErrNotInFoster
		}
		contactID, fosterUserID = dog.FosterFamilyContactID, dog.FosterFamilyUserID

		closed, err := closeActiveFoster(ctx, tx, dogID, now, models.EndReasonReturned)
		if err != nil {
			return err
		}
		if closed == nil {
			s.logger.Warn("dog in foster without active placement entry",
				zap.String("dog_id", dogID.String()), zap.String("contact_id", contactID.String()))
		}
		if err := tx.SetFoster(ctx, dogID, nil, nil); err != nil {
			return fmt.Errorf("clear foster pointers: %w", err)
		}

		dog.FosterFamilyContactID = nil
		dog.FosterFamilyUserID = nil
		dog.UpdatedAt = now
		out = &Outcome{Dog: dog, Closed: closed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.PlacementEvent{
		Kind:           models.EventFosterReturned,
		DogID:          dogID,
		DogName:        out.Dog.Name,
		OrganizationID: orgOf(out.Dog),
		ContactID:      contactID,
		FosterUserID:   fosterUserID,
		ActorID:        actorID,
		At:             now,
	})
	return out, nil
}

// closeActiveFoster completes the dog's open foster entry, if any, and frees a place at its
// contact. It returns the closed entry or nil.
func closeActiveFoster(ctx context.Context, tx Tx, dogID uuid.UUID, now time.Time, reason string) (*models.Placement, error) {
	active, err := tx.ActiveFosterPlacement(ctx, dogID)
	if err != nil {
		return nil, fmt.Errorf("find active placement: %w", err)
	}
	if active == nil {
		return nil, nil
	}
	if err := tx.ClosePlacement(ctx, active.ID, now, reason); err != nil {
		return nil, fmt.Errorf("close placement: %w", err)
	}
	if active.ContactID != nil {
		if err := tx.DecrementContactDogs(ctx, *active.ContactID); err != nil {
			return nil, fmt.Errorf("decrement contact dogs: %w", err)
		}
	}
	active.Status = models.PlacementCompleted
	active.EndDate = &now
	active.EndReason = &reason
	return active, nil
}

// LookupAdopter runs the lookup step of a transfer. On a miss the flow is returned unchanged
// with ErrAdopterNotFound. A flow already holding a candidate must be cancelled first.
func (s *Service) LookupAdopter(ctx context.Context, flow TransferFlow, email string) (next TransferFlow, err error) {
	defer s.observe(OpLookup, flow.DogID, time.Now(), &err)
	if flow.Phase != PhaseLookup {
		return flow, ErrTransferPending
	}
	email = models.NormalizeEmail(email)
	if email == "" {
		return flow, ErrEmailRequired
	}
	adopter, err := s.adopters.FindAdopterByEmail(ctx, email)
	if err != nil {
		return flow, fmt.Errorf("find adopter: %w", err)
	}
	if adopter == nil {
		return flow, ErrAdopterNotFound
	}
	return flow.Found(*adopter), nil
}

// ConfirmTransfer hands the dog to the adopter held by flow. Any open foster entry is
// closed the way Return closes it and a completed adoption entry is appended.
func (s *Service) ConfirmTransfer(ctx context.Context, actorID uuid.UUID, flow TransferFlow) (out *Outcome, err error) {
	defer s.observe(OpTransfer, flow.DogID, time.Now(), &err)
	adopter, ok := flow.Candidate()
	if !ok {
		return nil, ErrTransferPhase
	}

	now := s.now()
	var orgID uuid.UUID
	var contactID, fosterUserID *uuid.UUID
	err = s.store.WithinTx(ctx, func(tx Tx) error {
		dog, err := tx.LockDog(ctx, flow.DogID)
		if err != nil {
			return err
		}
		if err := CheckTransfer(dog); err != nil {
			return err
		}
		orgID = *dog.OrganizationID
		contactID, fosterUserID = dog.FosterFamilyContactID, dog.FosterFamilyUserID

		closed, err := closeActiveFoster(ctx, tx, dog.ID, now, transferCloseReason)
		if err != nil {
			return err
		}
		reason := models.EndReasonAdopted
		adoption := &models.Placement{
			DogID:          dog.ID,
			OrganizationID: orgID,
			PlacementType:  models.PlacementAdoption,
			StartDate:      now,
			EndDate:        &now,
			Status:         models.PlacementCompleted,
			EndReason:      &reason,
		}
		if err := tx.InsertPlacement(ctx, adoption); err != nil {
			return fmt.Errorf("insert adoption: %w", err)
		}
		if err := tx.MarkAdopted(ctx, dog.ID, adopter.ID); err != nil {
			return fmt.Errorf("mark adopted: %w", err)
		}

		dog.OrganizationID = nil
		dog.OwnerUserID = &adopter.ID
		dog.FosterFamilyContactID = nil
		dog.FosterFamilyUserID = nil
		dog.AdoptionStatus = models.AdoptionAdopted
		dog.UpdatedAt = now
		out = &Outcome{Dog: dog, Closed: closed, Completed: adoption}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.PlacementEvent{
		Kind:           models.EventAdoptionCompleted,
		DogID:          flow.DogID,
		DogName:        out.Dog.Name,
		OrganizationID: orgID,
		ContactID:      contactID,
		FosterUserID:   fosterUserID,
		AdopterID:      &adopter.ID,
		ActorID:        actorID,
		At:             now,
	})
	return out, nil
}

// History returns the dog's placement entries, newest first.
func (s *Service) History(ctx context.Context, dogID uuid.UUID) ([]models.Placement, error) {
	list, err := s.store.History(ctx, dogID)
	if err != nil {
		return nil, fmt.Errorf("placement history: %w", err)
	}
	return list, nil
}

func orgOf(d *models.Dog) uuid.UUID {
	if d.OrganizationID == nil {
		return uuid.Nil
	}
	return *d.OrganizationID
}

func (s *Service) publish(ctx context.Context, ev models.PlacementEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, ev)
}

func (s *Service) observe(op string, dogID uuid.UUID, start time.Time, errp *error) {
	outcome := metrics.OutcomeOK
	if err := *errp; err != nil {
		kind, code := Classify(err)
		if kind == KindBackend {
			outcome = metrics.OutcomeError
			s.logger.Error("placement operation failed",
				zap.String("operation", op), zap.String("dog_id", dogID.String()), zap.Error(err))
		} else {
			outcome = metrics.OutcomeRejected
			s.logger.Info("placement operation rejected",
				zap.String("operation", op), zap.String("dog_id", dogID.String()), zap.String("code", code))
		}
	}
	s.metrics.Observe(op, outcome, time.Since(start))
}
