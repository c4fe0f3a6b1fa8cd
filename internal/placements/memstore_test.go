package placements

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doogybook/backend/internal/models"
)

var errBoom = errors.New("boom")

type memState struct {
	dogs       map[uuid.UUID]models.Dog
	contacts   map[uuid.UUID]models.FosterContact
	placements []models.Placement
}

func (s memState) clone() memState {
	out := memState{
		dogs:       make(map[uuid.UUID]models.Dog, len(s.dogs)),
		contacts:   make(map[uuid.UUID]models.FosterContact, len(s.contacts)),
		placements: append([]models.Placement(nil), s.placements...),
	}
	for k, v := range s.dogs {
		out.dogs[k] = v
	}
	for k, v := range s.contacts {
		out.contacts[k] = v
	}
	return out
}

// memStore is an in-memory Store. Transactions work on a copy that replaces the state on
// success, and run one at a time.
type memStore struct {
	mu     sync.Mutex
	state  memState
	failAt string
	txs    int
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		dogs:     map[uuid.UUID]models.Dog{},
		contacts: map[uuid.UUID]models.FosterContact{},
	}}
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs++
	work := m.state.clone()
	if err := fn(&memTx{s: &work, failAt: m.failAt}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) History(_ context.Context, dogID uuid.UUID) ([]models.Placement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Placement
	for _, p := range m.state.placements {
		if p.DogID == dogID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *memStore) addDog(d models.Dog) models.Dog {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.AdoptionStatus == "" {
		d.AdoptionStatus = models.AdoptionAvailable
	}
	m.state.dogs[d.ID] = d
	return d
}

func (m *memStore) addContact(c models.FosterContact) models.FosterContact {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Type == "" {
		c.Type = models.ContactFosterFamily
	}
	if c.Status == "" {
		c.Status = models.ContactStatusActive
	}
	if c.Availability == "" {
		c.Availability = models.AvailabilityAvailable
	}
	m.state.contacts[c.ID] = c
	return c
}

// dog returns a copy of the stored dog.
func (m *memStore) dog(id uuid.UUID) *models.Dog {
	d := m.state.dogs[id]
	return &d
}

func (m *memStore) contact(id uuid.UUID) *models.FosterContact {
	c := m.state.contacts[id]
	return &c
}

func (m *memStore) activeFosters(dogID uuid.UUID) []models.Placement {
	var out []models.Placement
	for _, p := range m.state.placements {
		if p.DogID == dogID && p.IsActiveFoster() {
			out = append(out, p)
		}
	}
	return out
}

func (m *memStore) snapshot() Snapshot {
	var s Snapshot
	for _, d := range m.state.dogs {
		s.Dogs = append(s.Dogs, d)
	}
	for _, c := range m.state.contacts {
		s.Contacts = append(s.Contacts, c)
	}
	for _, p := range m.state.placements {
		if p.IsActiveFoster() {
			s.Active = append(s.Active, p)
		}
	}
	return s
}

type memTx struct {
	s      *memState
	failAt string
}

func (t *memTx) fail(step string) error {
	if t.failAt == step {
		return errBoom
	}
	return nil
}

func (t *memTx) LockDog(_ context.Context, dogID uuid.UUID) (*models.Dog, error) {
	if err := t.fail("LockDog"); err != nil {
		return nil, err
	}
	d, ok := t.s.dogs[dogID]
	if !ok {
		return nil, ErrDogNotFound
	}
	return &d, nil
}

func (t *memTx) GetContact(_ context.Context, contactID uuid.UUID) (*models.FosterContact, error) {
	if err := t.fail("GetContact"); err != nil {
		return nil, err
	}
	c, ok := t.s.contacts[contactID]
	if !ok {
		return nil, ErrContactNotFound
	}
	return &c, nil
}

func (t *memTx) ActiveFosterPlacement(_ context.Context, dogID uuid.UUID) (*models.Placement, error) {
	if err := t.fail("ActiveFosterPlacement"); err != nil {
		return nil, err
	}
	for _, p := range t.s.placements {
		if p.DogID == dogID && p.IsActiveFoster() {
			return &p, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertPlacement(_ context.Context, p *models.Placement) error {
	if err := t.fail("InsertPlacement"); err != nil {
		return err
	}
	if p.IsActiveFoster() {
		for _, q := range t.s.placements {
			if q.DogID == p.DogID && q.IsActiveFoster() {
				return ErrAlreadyInFoster
			}
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	t.s.placements = append(t.s.placements, *p)
	return nil
}

func (t *memTx) ClosePlacement(_ context.Context, id uuid.UUID, endedAt time.Time, reason string) error {
	if err := t.fail("ClosePlacement"); err != nil {
		return err
	}
	for i, p := range t.s.placements {
		if p.ID == id && p.Status == models.PlacementActive {
			p.Status = models.PlacementCompleted
			p.EndDate = &endedAt
			p.EndReason = &reason
			t.s.placements[i] = p
		}
	}
	return nil
}

func (t *memTx) SetFoster(_ context.Context, dogID uuid.UUID, contactID, userID *uuid.UUID) error {
	if err := t.fail("SetFoster"); err != nil {
		return err
	}
	d := t.s.dogs[dogID]
	d.FosterFamilyContactID = contactID
	d.FosterFamilyUserID = userID
	t.s.dogs[dogID] = d
	return nil
}

func (t *memTx) MarkAdopted(_ context.Context, dogID, ownerID uuid.UUID) error {
	if err := t.fail("MarkAdopted"); err != nil {
		return err
	}
	d := t.s.dogs[dogID]
	d.OrganizationID = nil
	d.OwnerUserID = &ownerID
	d.FosterFamilyContactID = nil
	d.FosterFamilyUserID = nil
	d.AdoptionStatus = models.AdoptionAdopted
	t.s.dogs[dogID] = d
	return nil
}

func (t *memTx) IncrementContactDogs(_ context.Context, contactID uuid.UUID) (bool, error) {
	if err := t.fail("IncrementContactDogs"); err != nil {
		return false, err
	}
	c, ok := t.s.contacts[contactID]
	if !ok || c.CurrentDogsCount >= c.MaxDogs {
		return false, nil
	}
	c.CurrentDogsCount++
	t.s.contacts[contactID] = c
	return true, nil
}

func (t *memTx) DecrementContactDogs(_ context.Context, contactID uuid.UUID) error {
	if err := t.fail("DecrementContactDogs"); err != nil {
		return err
	}
	c, ok := t.s.contacts[contactID]
	if !ok {
		return nil
	}
	if c.CurrentDogsCount > 0 {
		c.CurrentDogsCount--
	}
	t.s.contacts[contactID] = c
	return nil
}

type adopterMap map[string]models.AdopterAccount

func (a adopterMap) FindAdopterByEmail(_ context.Context, email string) (*models.AdopterAccount, error) {
	if acc, ok := a[models.NormalizeEmail(email)]; ok {
		return &acc, nil
	}
	return nil, nil
}

type recorder struct {
	mu     sync.Mutex
	events []models.PlacementEvent
}

func (r *recorder) Publish(_ context.Context, ev models.PlacementEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}
