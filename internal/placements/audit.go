package placements

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/doogybook/backend/internal/models"
)

// FindingKind names a consistency problem between dogs, contacts and placement history.
type FindingKind string

const (
	FindingCountMismatch       FindingKind = "contact_count_mismatch"
	FindingCountOutOfRange     FindingKind = "contact_count_out_of_range"
	FindingMultipleActive      FindingKind = "multiple_active_fosters"
	FindingAdoptedWithCustody  FindingKind = "adopted_with_custody"
	FindingFosterPointerBroken FindingKind = "foster_pointer_mismatch"
)

// Snapshot is the state audited at once. Active holds open foster entries only.
type Snapshot struct {
	Dogs     []models.Dog
	Contacts []models.FosterContact
	Active   []models.Placement
}

// Finding is one detected inconsistency.
type Finding struct {
	Kind    FindingKind `json:"kind"`
	Subject uuid.UUID   `json:"subject"`
	Detail  string      `json:"detail"`
}

// CountFix resets a contact's hosted dog count.
type CountFix struct {
	ContactID uuid.UUID `json:"contact_id"`
	From      int       `json:"from"`
	To        int       `json:"to"`
}

func activeByContact(s Snapshot) map[uuid.UUID]int {
	n := make(map[uuid.UUID]int)
	for _, p := range s.Active {
		if p.IsActiveFoster() && p.ContactID != nil {
			n[*p.ContactID]++
		}
	}
	return n
}

// Audit checks s and returns findings ordered by kind then subject.
func Audit(s Snapshot) []Finding {
	var out []Finding
	add := func(kind FindingKind, subject uuid.UUID, format string, args ...any) {
		out = append(out, Finding{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)})
	}

	perContact := activeByContact(s)
	for _, c := range s.Contacts {
		if c.CurrentDogsCount < 0 || c.CurrentDogsCount > c.MaxDogs {
			add(FindingCountOutOfRange, c.ID, "%s hosts %d dogs with max %d", c.FullName, c.CurrentDogsCount, c.MaxDogs)
		}
		if want := perContact[c.ID]; c.CurrentDogsCount != want {
			add(FindingCountMismatch, c.ID, "%s counts %d dogs but has %d active placements", c.FullName, c.CurrentDogsCount, want)
		}
	}

	activeByDog := make(map[uuid.UUID][]models.Placement)
	for _, p := range s.Active {
		if p.IsActiveFoster() {
			activeByDog[p.DogID] = append(activeByDog[p.DogID], p)
		}
	}
	for _, d := range s.Dogs {
		active := activeByDog[d.ID]
		if len(active) > 1 {
			add(FindingMultipleActive, d.ID, "%s has %d active foster placements", d.Name, len(active))
		}
		if d.IsAdopted() && (d.InFoster() || d.OrganizationID != nil) {
			add(FindingAdoptedWithCustody, d.ID, "%s is adopted but still has foster or organization pointers", d.Name)
		}
		var entryContact *uuid.UUID
		if len(active) > 0 {
			entryContact = active[0].ContactID
		}
		if !sameID(d.FosterFamilyContactID, entryContact) {
			add(FindingFosterPointerBroken, d.ID, "%s points at contact %s but its active placement names %s",
				d.Name, idString(d.FosterFamilyContactID), idString(entryContact))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Subject.String() < out[j].Subject.String()
	})
	return out
}

// CountFixes returns the count corrections that make every contact agree with its active
// foster entries, clamped to 0..max_dogs.
func CountFixes(s Snapshot) []CountFix {
	perContact := activeByContact(s)
	var out []CountFix
	for _, c := range s.Contacts {
		want := perContact[c.ID]
		if want > c.MaxDogs {
			want = c.MaxDogs
		}
		if want < 0 {
			want = 0
		}
		if want != c.CurrentDogsCount {
			out = append(out, CountFix{ContactID: c.ID, From: c.CurrentDogsCount, To: want})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID.String() < out[j].ContactID.String() })
	return out
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return "none"
	}
	return id.String()
}
