package fosters

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/database"
)

var (
	// ErrNotFound is returned when a foster contact does not exist.
	ErrNotFound = errors.New("foster contact not found")
	// ErrCapacityBelowCount is returned when max_dogs would drop below the dogs currently hosted.
	ErrCapacityBelowCount = errors.New("max_dogs below current dogs count")
)

// Columns is the select list understood by Scan.
const Columns = `id, organization_id, linked_user_id, full_name, COALESCE(email, ''), COALESCE(phone, ''), city,
	type, status, availability, current_dogs_count, max_dogs, total_dogs_fostered,
	COALESCE(housing_type, ''), has_garden, COALESCE(preferred_size, ''), COALESCE(notes, ''), rating,
	created_at, updated_at`

// Scan reads one contact row selected with Columns.
func Scan(row pgx.Row) (*models.FosterContact, error) {
	var fc models.FosterContact
	var typ string
	err := row.Scan(&fc.ID, &fc.OrganizationID, &fc.LinkedUserID, &fc.FullName, &fc.Email, &fc.Phone, &fc.City,
		&typ, &fc.Status, &fc.Availability, &fc.CurrentDogsCount, &fc.MaxDogs, &fc.TotalDogsFostered,
		&fc.HousingType, &fc.HasGarden, &fc.PreferredSize, &fc.Notes, &fc.Rating,
		&fc.CreatedAt, &fc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	fc.Type = models.ContactType(typ)
	return &fc, nil
}

func scanAll(rows pgx.Rows) ([]models.FosterContact, error) {
	defer rows.Close()
	list := []models.FosterContact{}
	for rows.Next() {
		fc, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *fc)
	}
	return list, rows.Err()
}

// Get returns a contact by id through q, which may be a pool or a transaction.
func Get(ctx context.Context, q database.Querier, id uuid.UUID, forUpdate bool) (*models.FosterContact, error) {
	sql := `SELECT ` + Columns + ` FROM foster_contacts WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return Scan(q.QueryRow(ctx, sql, id))
}

// Repository handles foster contact persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a foster contacts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create adds a contact to an organization's directory.
func (r *Repository) Create(ctx context.Context, fc *models.FosterContact) error {
	const q = `INSERT INTO foster_contacts (organization_id, linked_user_id, full_name, email, phone, city, type,
			status, availability, max_dogs, housing_type, has_garden, preferred_size, notes, rating)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10,
			NULLIF($11, ''), $12, NULLIF($13, ''), NULLIF($14, ''), $15)
		RETURNING id, current_dogs_count, total_dogs_fostered, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, fc.OrganizationID, fc.LinkedUserID, fc.FullName, fc.Email, fc.Phone, fc.City,
		string(fc.Type), fc.Status, fc.Availability, fc.MaxDogs, fc.HousingType, fc.HasGarden, fc.PreferredSize,
		fc.Notes, fc.Rating).
		Scan(&fc.ID, &fc.CurrentDogsCount, &fc.TotalDogsFostered, &fc.CreatedAt, &fc.UpdatedAt)
}

// GetByID returns a contact by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.FosterContact, error) {
	return Get(ctx, r.pool, id, false)
}

// ListForOrganization returns every contact of the organization ordered by name.
func (r *Repository) ListForOrganization(ctx context.Context, orgID uuid.UUID) ([]models.FosterContact, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+Columns+` FROM foster_contacts
		WHERE organization_id = $1 ORDER BY full_name, id`, orgID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// ListFosterCandidates returns active contacts of a fostering type, ordered by name.
// Availability and capacity are filtered by FilterEligible.
func (r *Repository) ListFosterCandidates(ctx context.Context, orgID uuid.UUID) ([]models.FosterContact, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+Columns+` FROM foster_contacts
		WHERE organization_id = $1 AND type IN ($2, $3) AND status = $4
		ORDER BY full_name, id`,
		orgID, string(models.ContactFosterFamily), string(models.ContactBoth), models.ContactStatusActive)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// Changes are the staff-editable fields of a contact. Nil fields are left unchanged.
// current_dogs_count is owned by the placement workflow and is never set here.
type Changes struct {
	FullName      *string
	Email         *string
	Phone         *string
	City          *string
	Type          *models.ContactType
	Status        *string
	Availability  *string
	MaxDogs       *int
	HousingType   *string
	HasGarden     *bool
	PreferredSize *string
	Notes         *string
	Rating        *int
}

// Update applies changes to a contact. Lowering max_dogs below the hosted dogs fails with
// ErrCapacityBelowCount.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, ch Changes) (*models.FosterContact, error) {
	var typ *string
	if ch.Type != nil {
		s := string(*ch.Type)
		typ = &s
	}
	const q = `UPDATE foster_contacts SET
			full_name = COALESCE($2, full_name),
			email = COALESCE($3, email),
			phone = COALESCE($4, phone),
			city = COALESCE($5, city),
			type = COALESCE($6, type),
			status = COALESCE($7, status),
			availability = COALESCE($8, availability),
			max_dogs = COALESCE($9, max_dogs),
			housing_type = COALESCE($10, housing_type),
			has_garden = COALESCE($11, has_garden),
			preferred_size = COALESCE($12, preferred_size),
			notes = COALESCE($13, notes),
			rating = COALESCE($14, rating),
			updated_at = NOW()
		WHERE id = $1 AND COALESCE($9, max_dogs) >= current_dogs_count
		RETURNING ` + Columns
	fc, err := Scan(r.pool.QueryRow(ctx, q, id, ch.FullName, ch.Email, ch.Phone, ch.City, typ, ch.Status,
		ch.Availability, ch.MaxDogs, ch.HousingType, ch.HasGarden, ch.PreferredSize, ch.Notes, ch.Rating))
	if !errors.Is(err, ErrNotFound) {
		return fc, err
	}
	// Distinguish a missing row from a rejected capacity change.
	if _, getErr := r.GetByID(ctx, id); getErr == nil {
		return nil, ErrCapacityBelowCount
	}
	return nil, ErrNotFound
}
