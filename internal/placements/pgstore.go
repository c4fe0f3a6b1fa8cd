package placements

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doogybook/backend/internal/dogs"
	"github.com/doogybook/backend/internal/fosters"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/database"
)

const placementColumns = `id, dog_id, contact_id, organization_id, placement_type, start_date, end_date,
	status, end_reason, created_at`

// uniqueActiveFoster is the partial unique index allowing one open foster entry per dog.
const uniqueActiveFoster = "uq_placement_history_active_foster"

func scanPlacement(row pgx.Row) (*models.Placement, error) {
	var p models.Placement
	var typ, status string
	if err := row.Scan(&p.ID, &p.DogID, &p.ContactID, &p.OrganizationID, &typ, &p.StartDate, &p.EndDate,
		&status, &p.EndReason, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.PlacementType = models.PlacementType(typ)
	p.Status = models.PlacementStatus(status)
	return &p, nil
}

// PGStore is the PostgreSQL Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a PostgreSQL placement store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// WithinTx implements Store.
func (s *PGStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return database.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(pgTx{tx: tx})
	})
}

// History implements Store.
func (s *PGStore) History(ctx context.Context, dogID uuid.UUID) ([]models.Placement, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+placementColumns+` FROM placement_history
		WHERE dog_id = $1 ORDER BY start_date DESC, created_at DESC`, dogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Placement{}
	for rows.Next() {
		p, err := scanPlacement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) LockDog(ctx context.Context, dogID uuid.UUID) (*models.Dog, error) {
	d, err := dogs.Scan(t.tx.QueryRow(ctx, `SELECT `+dogs.Columns+` FROM dogs WHERE id = $1 FOR UPDATE`, dogID))
	if errors.Is(err, dogs.ErrNotFound) {
		return nil, ErrDogNotFound
	}
	return d, err
}

func (t pgTx) GetContact(ctx context.Context, contactID uuid.UUID) (*models.FosterContact, error) {
	fc, err := fosters.Get(ctx, t.tx, contactID, true)
	if errors.Is(err, fosters.ErrNotFound) {
		return nil, ErrContactNotFound
	}
	return fc, err
}

func (t pgTx) ActiveFosterPlacement(ctx context.Context, dogID uuid.UUID) (*models.Placement, error) {
	p, err := scanPlacement(t.tx.QueryRow(ctx, `SELECT `+placementColumns+` FROM placement_history
		WHERE dog_id = $1 AND status = $2 AND placement_type = $3
		ORDER BY start_date DESC LIMIT 1`,
		dogID, string(models.PlacementActive), string(models.PlacementFoster)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (t pgTx) InsertPlacement(ctx context.Context, p *models.Placement) error {
	const q = `INSERT INTO placement_history
			(dog_id, contact_id, organization_id, placement_type, start_date, end_date, status, end_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err := t.tx.QueryRow(ctx, q, p.DogID, p.ContactID, p.OrganizationID, string(p.PlacementType),
		p.StartDate, p.EndDate, string(p.Status), p.EndReason).Scan(&p.ID, &p.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == uniqueActiveFoster {
		return ErrAlreadyInFoster
	}
	return err
}

func (t pgTx) ClosePlacement(ctx context.Context, id uuid.UUID, endedAt time.Time, reason string) error {
	_, err := t.tx.Exec(ctx, `UPDATE placement_history SET status = $2, end_date = $3, end_reason = $4
		WHERE id = $1 AND status = $5`,
		id, string(models.PlacementCompleted), endedAt, reason, string(models.PlacementActive))
	return err
}

func (t pgTx) SetFoster(ctx context.Context, dogID uuid.UUID, contactID, userID *uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `UPDATE dogs SET foster_family_contact_id = $2, foster_family_user_id = $3, updated_at = NOW()
		WHERE id = $1`, dogID, contactID, userID)
	return err
}

func (t pgTx) MarkAdopted(ctx context.Context, dogID, ownerID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `UPDATE dogs SET
			organization_id = NULL,
			owner_user_id = $2,
			foster_family_contact_id = NULL,
			foster_family_user_id = NULL,
			adoption_status = $3,
			updated_at = NOW()
		WHERE id = $1`, dogID, ownerID, string(models.AdoptionAdopted))
	return err
}

func (t pgTx) IncrementContactDogs(ctx context.Context, contactID uuid.UUID) (bool, error) {
	tag, err := t.tx.Exec(ctx, `UPDATE foster_contacts SET current_dogs_count = current_dogs_count + 1, updated_at = NOW()
		WHERE id = $1 AND current_dogs_count < max_dogs`, contactID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t pgTx) DecrementContactDogs(ctx context.Context, contactID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `UPDATE foster_contacts SET current_dogs_count = GREATEST(current_dogs_count - 1, 0), updated_at = NOW()
		WHERE id = $1`, contactID)
	return err
}
