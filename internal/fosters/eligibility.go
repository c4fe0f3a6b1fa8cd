package fosters

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/doogybook/backend/internal/models"
)

// FilterEligible keeps contacts that are available and below capacity, preserving order.
// The input is expected to be the active fostering contacts of one organization.
func FilterEligible(contacts []models.FosterContact) []models.FosterContact {
	out := make([]models.FosterContact, 0, len(contacts))
	for i := range contacts {
		if contacts[i].Eligible() {
			out = append(out, contacts[i])
		}
	}
	return out
}

// Search keeps contacts whose name or city contains q, ignoring case. An empty q keeps all.
func Search(contacts []models.FosterContact, q string) []models.FosterContact {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return contacts
	}
	out := make([]models.FosterContact, 0, len(contacts))
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.FullName), q) || strings.Contains(strings.ToLower(c.City), q) {
			out = append(out, c)
		}
	}
	return out
}

// CandidateSource lists an organization's active fostering contacts ordered by name.
type CandidateSource interface {
	ListFosterCandidates(ctx context.Context, orgID uuid.UUID) ([]models.FosterContact, error)
}

// Finder answers which contacts an organization may place a dog with.
type Finder struct {
	source CandidateSource
}

// NewFinder creates an eligibility finder over source.
func NewFinder(source CandidateSource) *Finder {
	return &Finder{source: source}
}

// Eligible returns the organization's eligible foster contacts, optionally narrowed by a
// free-text search over name and city. An empty list is a valid result.
func (f *Finder) Eligible(ctx context.Context, orgID uuid.UUID, search string) ([]models.FosterContact, error) {
	candidates, err := f.source.ListFosterCandidates(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list foster candidates: %w", err)
	}
	return Search(FilterEligible(candidates), search), nil
}
