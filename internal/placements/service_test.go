package placements

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doogybook/backend/internal/metrics"
	"github.com/doogybook/backend/internal/models"
)

type fixture struct {
	store   *memStore
	events  *recorder
	svc     *Service
	orgID   uuid.UUID
	actorID uuid.UUID
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   newMemStore(),
		events:  &recorder{},
		orgID:   uuid.New(),
		actorID: uuid.New(),
		clock:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	adopters := adopterMap{
		"jane@example.com": {ID: uuid.New(), Email: "jane@example.com", FullName: "Jane Doe"},
	}
	f.svc = NewService(f.store, adopters, f.events, nil, nil)
	f.svc.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func (f *fixture) shelterDog(name string) models.Dog {
	return f.store.addDog(models.Dog{Name: name, OrganizationID: &f.orgID})
}

func (f *fixture) fosterFamily(name string, count, max int) models.FosterContact {
	return f.store.addContact(models.FosterContact{
		OrganizationID: f.orgID, FullName: name, CurrentDogsCount: count, MaxDogs: max,
	})
}

func (f *fixture) transfer(t *testing.T, dogID uuid.UUID, email string) (*Outcome, error) {
	t.Helper()
	flow, err := f.svc.LookupAdopter(context.Background(), NewTransferFlow(dogID), email)
	require.NoError(t, err)
	return f.svc.ConfirmTransfer(context.Background(), f.actorID, flow)
}

func TestPlace_Success(t *testing.T) {
	f := newFixture(t)
	linked := uuid.New()
	dog := f.shelterDog("Rex")
	fc := f.store.addContact(models.FosterContact{
		OrganizationID: f.orgID, FullName: "Alice", CurrentDogsCount: 1, MaxDogs: 3, LinkedUserID: &linked,
	})

	out, err := f.svc.Place(context.Background(), f.actorID, dog.ID, fc.ID)
	require.NoError(t, err)

	stored := f.store.dog(dog.ID)
	require.NotNil(t, stored.FosterFamilyContactID)
	assert.Equal(t, fc.ID, *stored.FosterFamilyContactID)
	assert.Equal(t, &linked, stored.FosterFamilyUserID)
	assert.Equal(t, 2, f.store.contact(fc.ID).CurrentDogsCount)

	active := f.store.activeFosters(dog.ID)
	require.Len(t, active, 1)
	assert.Equal(t, fc.ID, *active[0].ContactID)
	assert.Equal(t, f.orgID, active[0].OrganizationID)
	assert.Nil(t, active[0].EndDate)

	assert.Equal(t, active[0].ID, out.Opened.ID)
	assert.Equal(t, fc.ID, *out.Dog.FosterFamilyContactID)

	require.Len(t, f.events.events, 1)
	ev := f.events.events[0]
	assert.Equal(t, models.EventFosterPlaced, ev.Kind)
	assert.Equal(t, "Rex", ev.DogName)
	assert.Equal(t, &linked, ev.FosterUserID)
	assert.Equal(t, f.actorID, ev.ActorID)
}

func TestPlace_BlockedWhileInFoster(t *testing.T) {
	f := newFixture(t)
	dog := f.shelterDog("Rex")
	f1 := f.fosterFamily("Alice", 0, 2)
	f2 := f.fosterFamily("Bruno", 0, 2)

	_, err := f.svc.Place(context.Background(), f.actorID, dog.ID, f1.ID)
	require.NoError(t, err)

	_, err = f.svc.Place(context.Background(), f.actorID, dog.ID, f2.ID)
	assert.ErrorIs(t, err, ErrAlreadyInFoster)

	assert.Equal(t, 0, f.store.contact(f2.ID).CurrentDogsCount)
	assert.Equal(t, 1, f.store.contact(f1.ID).CurrentDogsCount)
	assert.Len(t, f.store.activeFosters(dog.ID), 1)
	assert.Len(t, f.events.events, 1)
}

func TestPlace_Rejections(t *testing.T) {
	f := newFixture(t)
	otherOrg := uuid.New()
	dog := f.shelterDog("Rex")
	adoptedDog := f.store.addDog(models.Dog{Name: "Luna", AdoptionStatus: models.AdoptionAdopted})
	open := f.fosterFamily("Alice", 0, 2)
	full := f.fosterFamily("Bruno", 2, 2)
	elsewhere := f.store.addContact(models.FosterContact{OrganizationID: otherOrg, FullName: "Chloe", MaxDogs: 2})
	inactive := f.store.addContact(models.FosterContact{OrganizationID: f.orgID, FullName: "Denis", MaxDogs: 2, Status: models.ContactStatusInactive})
	away := f.store.addContact(models.FosterContact{OrganizationID: f.orgID, FullName: "Emma", MaxDogs: 2, Availability: models.AvailabilityUnavailable})
	vet := f.store.addContact(models.FosterContact{OrganizationID: f.orgID, FullName: "Dr Paul", MaxDogs: 2, Type: models.ContactVet})

	tests := []struct {
		name    string
		dogID   uuid.UUID
		contact uuid.UUID
		want    error
	}{
		{"no contact selected", dog.ID, uuid.Nil, ErrContactRequired},
		{"unknown dog", uuid.New(), open.ID, ErrDogNotFound},
		{"adopted dog", adoptedDog.ID, open.ID, ErrAlreadyAdopted},
		{"unknown contact", dog.ID, uuid.New(), ErrContactNotFound},
		{"contact of another organization", dog.ID, elsewhere.ID, ErrContactNotFound},
		{"contact at capacity", dog.ID, full.ID, ErrContactAtCapacity},
		{"inactive contact", dog.ID, inactive.ID, ErrContactNotEligible},
		{"unavailable contact", dog.ID, away.ID, ErrContactNotEligible},
		{"contact type cannot foster", dog.ID, vet.ID, ErrContactNotEligible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Place(context.Background(), f.actorID, tt.dogID, tt.contact)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.store.state.placements)
	assert.Nil(t, f.store.dog(dog.ID).FosterFamilyContactID)
	assert.Equal(t, 2, f.store.contact(full.ID).CurrentDogsCount)
	assert.Empty(t, f.events.events)
}

func TestPlace_ValidationSkipsStore(t *testing.T) {
	f := newFixture(t)
	dog := f.shelterDog("Rex")

	_, err := f.svc.Place(context.Background(), f.actorID, dog.ID, uuid.Nil)

	assert.ErrorIs(t, err, ErrContactRequired)
	assert.Zero(t, f.store.txs)
}

func TestPlace_FailedStepLeavesNoPartialWrites(t *testing.T) {
	for _, step := range []string{"InsertPlacement", "SetFoster", "IncrementContactDogs"} {
		t.Run(step, func(t *testing.T) {
			f := newFixture(t)
			dog := f.shelterDog("Rex")
			fc := f.fosterFamily("Alice", 1, 3)
			f.store.failAt = step

			_, err := f.svc.Place(context.Background(), f.actorID, dog.ID, fc.ID)

			require.ErrorIs(t, err, errBoom)
			kind, _ := Classify(err)
			assert.Equal(t, KindBackend, kind)
			assert.Empty(t, f.store.state.placements)
			assert.Nil(t, f.store.dog(dog.ID).FosterFamilyContactID)
			assert.Equal(t, 1, f.store.contact(fc.ID).CurrentDogsCount)
			assert.Empty(t, f.events.events)
		})
	}
}

func TestReturnThenPlaceAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dog := f.shelterDog("Rex")
	fc := f.fosterFamily("Alice", 1, 3)

	_, err := f.svc.Place(ctx, f.actorID, dog.ID, fc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.contact(fc.ID).CurrentDogsCount)

	out, err := f.svc.Return(ctx, f.actorID, dog.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.contact(fc.ID).CurrentDogsCount)
	require.NotNil(t, out.Closed)
	assert.Equal(t, models.PlacementCompleted, out.Closed.Status)
	assert.Equal(t, models.EndReasonReturned, *out.Closed.EndReason)
	assert.Nil(t, f.store.dog(dog.ID).FosterFamilyContactID)
	assert.Nil(t, f.store.dog(dog.ID).FosterFamilyUserID)
	assert.Empty(t, f.store.activeFosters(dog.ID))

	_, err = f.svc.Place(ctx, f.actorID, dog.ID, fc.ID)
	require.NoError(t, err)

	history, err := f.svc.History(ctx, dog.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.NotEqual(t, history[0].ID, history[1].ID)
	assert.Equal(t, models.PlacementActive, history[0].Status)
	assert.Equal(t, models.PlacementCompleted, history[1].Status)
	assert.Equal(t, 2, f.store.contact(fc.ID).CurrentDogsCount)

	kinds := []models.PlacementEventKind{}
	for _, ev := range f.events.events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []models.PlacementEventKind{models.EventFosterPlaced, models.EventFosterReturned, models.EventFosterPlaced}, kinds)
}

func TestReturn_NotInFoster(t *testing.T) {
	f := newFixture(t)
	dog := f.shelterDog("Rex")

	_, err := f.svc.Return(context.Background(), f.actorID, dog.ID)

	assert.ErrorIs(t, err, ErrNotInFoster)
}

func TestReturn_WithoutActiveEntry(t *testing.T) {
	f := newFixture(t)
	fc := f.fosterFamily("Alice", 1, 3)
	dog := f.store.addDog(models.Dog{Name: "Rex", OrganizationID: &f.orgID, FosterFamilyContactID: &fc.ID})

	out, err := f.svc.Return(context.Background(), f.actorID, dog.ID)

	require.NoError(t, err)
	assert.Nil(t, out.Closed)
	assert.Nil(t, f.store.dog(dog.ID).FosterFamilyContactID)
	assert.Equal(t, 1, f.store.contact(fc.ID).CurrentDogsCount)
}

func TestReturn_CountFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	fc := f.fosterFamily("Alice", 0, 3)
	dog := f.shelterDog("Rex")
	_, err := f.svc.Place(context.Background(), f.actorID, dog.ID, fc.ID)
	require.NoError(t, err)
	c := f.store.state.contacts[fc.ID]
	c.CurrentDogsCount = 0
	f.store.state.contacts[fc.ID] = c

	_, err = f.svc.Return(context.Background(), f.actorID, dog.ID)

	require.NoError(t, err)
	assert.Equal(t, 0, f.store.contact(fc.ID).CurrentDogsCount)
}

func TestTransfer_FromFoster(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dog := f.shelterDog("Rex")
	fc := f.fosterFamily("Alice", 1, 3)
	_, err := f.svc.Place(ctx, f.actorID, dog.ID, fc.ID)
	require.NoError(t, err)
	n := f.store.contact(fc.ID).CurrentDogsCount

	flow, err := f.svc.LookupAdopter(ctx, NewTransferFlow(dog.ID), "  Jane@Example.com ")
	require.NoError(t, err)
	adopter, ok := flow.Candidate()
	require.True(t, ok)

	out, err := f.svc.ConfirmTransfer(ctx, f.actorID, flow)
	require.NoError(t, err)

	stored := f.store.dog(dog.ID)
	assert.Equal(t, n-1, f.store.contact(fc.ID).CurrentDogsCount)
	assert.Equal(t, &adopter.ID, stored.OwnerUserID)
	assert.Equal(t, models.AdoptionAdopted, stored.AdoptionStatus)
	assert.Nil(t, stored.OrganizationID)
	assert.Nil(t, stored.FosterFamilyContactID)
	assert.Nil(t, stored.FosterFamilyUserID)

	require.NotNil(t, out.Closed)
	assert.Equal(t, models.EndReasonReturned, *out.Closed.EndReason)
	require.NotNil(t, out.Completed)
	assert.Equal(t, models.EndReasonAdopted, *out.Completed.EndReason)
	assert.Equal(t, models.PlacementAdoption, out.Completed.PlacementType)
	assert.Equal(t, models.PlacementCompleted, out.Completed.Status)
	assert.Nil(t, out.Completed.ContactID)
	assert.Equal(t, out.Completed.StartDate, *out.Completed.EndDate)
	assert.Empty(t, f.store.activeFosters(dog.ID))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, models.EventAdoptionCompleted, last.Kind)
	assert.Equal(t, f.orgID, last.OrganizationID)
	assert.Equal(t, &adopter.ID, last.AdopterID)
	assert.Equal(t, &fc.ID, last.ContactID)

	_, err = f.svc.ConfirmTransfer(ctx, f.actorID, flow)
	assert.ErrorIs(t, err, ErrAlreadyAdopted)
	_, err = f.svc.Place(ctx, f.actorID, dog.ID, fc.ID)
	assert.ErrorIs(t, err, ErrAlreadyAdopted)
}

func TestTransfer_FromShelter(t *testing.T) {
	f := newFixture(t)
	dog := f.shelterDog("Rex")

	out, err := f.transfer(t, dog.ID, "jane@example.com")

	require.NoError(t, err)
	assert.Nil(t, out.Closed)
	assert.Len(t, f.store.state.placements, 1)
	assert.True(t, f.store.dog(dog.ID).IsAdopted())
}

func TestTransfer_LookupMiss(t *testing.T) {
	f := newFixture(t)
	dog := f.shelterDog("Rex")
	start := NewTransferFlow(dog.ID)

	flow, err := f.svc.LookupAdopter(context.Background(), start, "nobody@example.com")

	assert.ErrorIs(t, err, ErrAdopterNotFound)
	assert.Equal(t, start, flow)
	assert.Equal(t, PhaseLookup, flow.Phase)
	assert.Zero(t, f.store.txs)
	assert.Empty(t, f.store.state.placements)
}

func TestTransfer_PhaseAndValidation(t *testing.T) {
	f := newFixture(t)
	dog := f.shelterDog("Rex")
	ctx := context.Background()

	_, err := f.svc.LookupAdopter(ctx, NewTransferFlow(dog.ID), "   ")
	assert.ErrorIs(t, err, ErrEmailRequired)

	_, err = f.svc.ConfirmTransfer(ctx, f.actorID, NewTransferFlow(dog.ID))
	assert.ErrorIs(t, err, ErrTransferPhase)

	confirm, err := f.svc.LookupAdopter(ctx, NewTransferFlow(dog.ID), "jane@example.com")
	require.NoError(t, err)
	again, err := f.svc.LookupAdopter(ctx, confirm, "other@example.com")
	assert.ErrorIs(t, err, ErrTransferPending)
	assert.Equal(t, confirm, again)
	_, err = f.svc.LookupAdopter(ctx, confirm.Cancel(), "jane@example.com")
	assert.NoError(t, err)

	f.store.failAt = "MarkAdopted"
	_, err = f.svc.ConfirmTransfer(ctx, f.actorID, confirm)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, f.store.dog(dog.ID).IsAdopted())
	assert.Empty(t, f.store.state.placements)
}

// Random place/return/transfer sequences must keep every contact count in range, at most one
// open foster entry per dog, and adopted dogs free of custody pointers.
func TestWorkflowInvariantsHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var dogIDs, contactIDs []uuid.UUID
	for _, name := range []string{"Rex", "Luna", "Max", "Nala", "Oscar", "Pip"} {
		dogIDs = append(dogIDs, f.shelterDog(name).ID)
	}
	for i, name := range []string{"Alice", "Bruno", "Chloe"} {
		contactIDs = append(contactIDs, f.fosterFamily(name, 0, i+1).ID)
	}

	for step := 0; step < 300; step++ {
		dogID := dogIDs[rng.Intn(len(dogIDs))]
		var err error
		switch r := rng.Intn(10); {
		case r < 5:
			_, err = f.svc.Place(ctx, f.actorID, dogID, contactIDs[rng.Intn(len(contactIDs))])
		case r < 9:
			_, err = f.svc.Return(ctx, f.actorID, dogID)
		default:
			_, err = f.transfer(t, dogID, "jane@example.com")
		}
		if err != nil {
			kind, _ := Classify(err)
			require.NotEqual(t, KindBackend, kind, "step %d: %v", step, err)
		}

		for _, c := range f.store.state.contacts {
			require.GreaterOrEqual(t, c.CurrentDogsCount, 0)
			require.LessOrEqual(t, c.CurrentDogsCount, c.MaxDogs)
		}
		for _, d := range f.store.state.dogs {
			require.LessOrEqual(t, len(f.store.activeFosters(d.ID)), 1)
			if d.IsAdopted() {
				require.Nil(t, d.FosterFamilyContactID)
				require.Nil(t, d.OrganizationID)
			}
		}
		require.Empty(t, Audit(f.store.snapshot()), "step %d", step)
	}
}

func TestService_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := newMemStore()
	svc := NewService(store, adopterMap{}, nil, metrics.NewPlacement(reg), nil)
	orgID := uuid.New()
	dog := store.addDog(models.Dog{Name: "Rex", OrganizationID: &orgID})
	fc := store.addContact(models.FosterContact{OrganizationID: orgID, FullName: "Alice", MaxDogs: 1})

	_, err := svc.Place(context.Background(), uuid.New(), dog.ID, fc.ID)
	require.NoError(t, err)
	_, err = svc.Place(context.Background(), uuid.New(), dog.ID, fc.ID)
	require.ErrorIs(t, err, ErrAlreadyInFoster)

	n, err := testutil.GatherAndCount(reg, "doogybook_placement_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
