package placements

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doogybook/backend/internal/dogs"
	"github.com/doogybook/backend/internal/fosters"
	"github.com/doogybook/backend/internal/models"
	"github.com/doogybook/backend/pkg/database"
)

// LoadSnapshot reads dogs, contacts and open foster entries in one repeatable-read transaction.
func LoadSnapshot(ctx context.Context, pool *pgxpool.Pool) (Snapshot, error) {
	var s Snapshot
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		if s.Dogs, err = loadDogs(ctx, tx); err != nil {
			return fmt.Errorf("load dogs: %w", err)
		}
		if s.Contacts, err = loadContacts(ctx, tx); err != nil {
			return fmt.Errorf("load contacts: %w", err)
		}
		if s.Active, err = loadActive(ctx, tx); err != nil {
			return fmt.Errorf("load active placements: %w", err)
		}
		return nil
	})
	return s, err
}

func loadDogs(ctx context.Context, q database.Querier) ([]models.Dog, error) {
	rows, err := q.Query(ctx, `SELECT `+dogs.Columns+` FROM dogs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Dog
	for rows.Next() {
		d, err := dogs.Scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

func loadContacts(ctx context.Context, q database.Querier) ([]models.FosterContact, error) {
	rows, err := q.Query(ctx, `SELECT `+fosters.Columns+` FROM foster_contacts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.FosterContact
	for rows.Next() {
		fc, err := fosters.Scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *fc)
	}
	return list, rows.Err()
}

func loadActive(ctx context.Context, q database.Querier) ([]models.Placement, error) {
	rows, err := q.Query(ctx, `SELECT `+placementColumns+` FROM placement_history
		WHERE status = $1 AND placement_type = $2 ORDER BY dog_id, start_date`,
		string(models.PlacementActive), string(models.PlacementFoster))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Placement
	for rows.Next() {
		p, err := scanPlacement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// ApplyCountFixes recomputes contact counts from the active foster entries in one transaction,
// clamped to 0..max_dogs. Counts are derived again under lock, so fixes computed from a stale
// snapshot cannot overwrite concurrent placements. It returns the number of contacts changed.
func ApplyCountFixes(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var changed int64
	err := database.InTx(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `LOCK TABLE foster_contacts, placement_history IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return fmt.Errorf("lock tables: %w", err)
		}
		tag, err := tx.Exec(ctx, `WITH actual AS (
				SELECT fc.id, LEAST(COUNT(ph.id), fc.max_dogs)::INT AS n
				FROM foster_contacts fc
				LEFT JOIN placement_history ph
					ON ph.contact_id = fc.id AND ph.status = $1 AND ph.placement_type = $2
				GROUP BY fc.id, fc.max_dogs
			)
			UPDATE foster_contacts fc SET current_dogs_count = actual.n, updated_at = NOW()
			FROM actual
			WHERE fc.id = actual.id AND fc.current_dogs_count <> actual.n`,
			string(models.PlacementActive), string(models.PlacementFoster))
		if err != nil {
			return fmt.Errorf("recompute counts: %w", err)
		}
		changed = tag.RowsAffected()
		return nil
	})
	return changed, err
}
