package fosters

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doogybook/backend/internal/models"
)

func contact(name, city string, count, max int, availability string) models.FosterContact {
	return models.FosterContact{
		ID:               uuid.New(),
		FullName:         name,
		City:             city,
		Type:             models.ContactFosterFamily,
		Status:           models.ContactStatusActive,
		Availability:     availability,
		CurrentDogsCount: count,
		MaxDogs:          max,
	}
}

func names(list []models.FosterContact) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.FullName)
	}
	return out
}

type sliceSource struct {
	list []models.FosterContact
	err  error
}

func (s sliceSource) ListFosterCandidates(context.Context, uuid.UUID) ([]models.FosterContact, error) {
	return s.list, s.err
}

func TestFilterEligible(t *testing.T) {
	in := []models.FosterContact{
		contact("Alice", "Lyon", 0, 2, models.AvailabilityAvailable),
		contact("Bruno", "Paris", 2, 2, models.AvailabilityAvailable),
		contact("Chloe", "Nantes", 0, 3, models.AvailabilityUnavailable),
		contact("Denis", "Lille", 1, 3, models.AvailabilityAvailable),
		contact("Emma", "Lyon", 0, 0, models.AvailabilityAvailable),
	}

	got := FilterEligible(in)

	assert.Equal(t, []string{"Alice", "Denis"}, names(got))
}

func TestSearch(t *testing.T) {
	in := []models.FosterContact{
		contact("Alice Martin", "Lyon", 0, 2, models.AvailabilityAvailable),
		contact("Bruno Petit", "Paris", 0, 2, models.AvailabilityAvailable),
		contact("Chloe Roux", "Villeurbanne", 0, 2, models.AvailabilityAvailable),
	}
	tests := []struct {
		q    string
		want []string
	}{
		{"", []string{"Alice Martin", "Bruno Petit", "Chloe Roux"}},
		{"  ", []string{"Alice Martin", "Bruno Petit", "Chloe Roux"}},
		{"MARTIN", []string{"Alice Martin"}},
		{"lyon", []string{"Alice Martin"}},
		{"r", []string{"Alice Martin", "Bruno Petit", "Chloe Roux"}},
		{"paris", []string{"Bruno Petit"}},
		{"berlin", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Search(in, tt.q)))
		})
	}
}

func TestFinder_Eligible(t *testing.T) {
	src := sliceSource{list: []models.FosterContact{
		contact("Alice", "Lyon", 1, 3, models.AvailabilityAvailable),
		contact("Bruno", "Paris", 3, 3, models.AvailabilityAvailable),
		contact("Chloe", "Lyon", 0, 1, models.AvailabilityAvailable),
	}}
	f := NewFinder(src)
	orgID := uuid.New()

	t.Run("filters and searches", func(t *testing.T) {
		got, err := f.Eligible(context.Background(), orgID, "lyon")
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Chloe"}, names(got))
	})

	t.Run("repeatable without writes", func(t *testing.T) {
		first, err := f.Eligible(context.Background(), orgID, "")
		require.NoError(t, err)
		second, err := f.Eligible(context.Background(), orgID, "")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("empty is not an error", func(t *testing.T) {
		got, err := NewFinder(sliceSource{}).Eligible(context.Background(), orgID, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("source failure", func(t *testing.T) {
		_, err := NewFinder(sliceSource{err: errors.New("boom")}).Eligible(context.Background(), orgID, "")
		assert.Error(t, err)
	})
}
