package dogs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/database"
)

// ErrNotFound is returned when a dog does not exist.
var ErrNotFound = errors.New("dog not found")

// Columns is the select list understood by Scan.
const Columns = `id, name, breed, COALESCE(sex, ''), birth_date, description, COALESCE(photo_key, ''),
	organization_id, owner_user_id, foster_family_contact_id, foster_family_user_id,
	adoption_status, created_at, updated_at`

// Scan reads one dog row selected with Columns.
func Scan(row pgx.Row) (*models.Dog, error) {
	var d models.Dog
	var status string
	err := row.Scan(&d.ID, &d.Name, &d.Breed, &d.Sex, &d.BirthDate, &d.Description, &d.PhotoKey,
		&d.OrganizationID, &d.OwnerUserID, &d.FosterFamilyContactID, &d.FosterFamilyUserID,
		&status, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.AdoptionStatus = models.AdoptionStatus(status)
	return &d, nil
}

func scanAll(rows pgx.Rows) ([]models.Dog, error) {
	defer rows.Close()
	var list []models.Dog
	for rows.Next() {
		d, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

// Repository handles dog persistence outside the placement workflow.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a dogs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create lists a new dog for an organization.
func (r *Repository) Create(ctx context.Context, d *models.Dog) error {
	const q = `INSERT INTO dogs (name, breed, sex, birth_date, description, organization_id, adoption_status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, d.Name, d.Breed, d.Sex, d.BirthDate, d.Description, d.OrganizationID, string(d.AdoptionStatus)).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
}

// GetByID returns a dog by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dog, error) {
	return getByID(ctx, r.pool, id)
}

func getByID(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Dog, error) {
	return Scan(q.QueryRow(ctx, `SELECT `+Columns+` FROM dogs WHERE id = $1`, id))
}

// RosterFilter narrows an organization roster.
type RosterFilter struct {
	Status   *models.AdoptionStatus
	InFoster *bool
}

// ListByOrganization returns the organization's roster ordered by name.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID, f RosterFilter) ([]models.Dog, error) {
	q := `SELECT ` + Columns + ` FROM dogs WHERE organization_id = $1`
	args := []any{orgID}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		q += ` AND adoption_status = $2`
	}
	if f.InFoster != nil {
		if *f.InFoster {
			q += ` AND foster_family_contact_id IS NOT NULL`
		} else {
			q += ` AND foster_family_contact_id IS NULL`
		}
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY name, created_at`, args...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// ListByOwner returns dogs owned by an adopter.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Dog, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+Columns+` FROM dogs WHERE owner_user_id = $1 ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows)
}

// Details are the descriptive fields staff may edit. Nil fields are left unchanged.
type Details struct {
	Name           *string
	Breed          *string
	Description    *string
	BirthDate      *time.Time
	AdoptionStatus *models.AdoptionStatus
}

// UpdateDetails edits descriptive fields of a dog still on an organization roster.
// Custody pointers are not touched here.
func (r *Repository) UpdateDetails(ctx context.Context, id uuid.UUID, d Details) (*models.Dog, error) {
	var status *string
	if d.AdoptionStatus != nil {
		s := string(*d.AdoptionStatus)
		status = &s
	}
	const q = `UPDATE dogs SET
			name = COALESCE($2, name),
			breed = COALESCE($3, breed),
			description = COALESCE($4, description),
			birth_date = COALESCE($5, birth_date),
			adoption_status = COALESCE($6, adoption_status),
			updated_at = NOW()
		WHERE id = $1 AND adoption_status <> 'adopted'
		RETURNING ` + Columns
	return Scan(r.pool.QueryRow(ctx, q, id, d.Name, d.Breed, d.Description, d.BirthDate, status))
}

// SetPhotoKey records the object key of the dog's photo.
func (r *Repository) SetPhotoKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE dogs SET photo_key = $2, updated_at = NOW() WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
