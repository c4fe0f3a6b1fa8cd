package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doogybook/backend/internal/models"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, email, password_hash, full_name, COALESCE(city, ''), role, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.City, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by normalized email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, models.NormalizeEmail(email)))
}

// FindAdopterByEmail locates an adopter account by normalized email. A miss returns (nil, nil).
func (r *Repository) FindAdopterByEmail(ctx context.Context, email string) (*models.AdopterAccount, error) {
	u, err := r.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := u.ToAdopter()
	return &a, nil
}

// GetAdopter returns the adopter account for a user id. A miss returns (nil, nil).
func (r *Repository) GetAdopter(ctx context.Context, id uuid.UUID) (*models.AdopterAccount, error) {
	u, err := r.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a := u.ToAdopter()
	return &a, nil
}

// List returns all users for admin screens.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, full_name, COALESCE(city, ''), role, created_at FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.FullName, &u.City, &role, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		list = append(list, u)
	}
	return list, rows.Err()
}

// Create inserts a new user. The email is stored normalized.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName, city string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, city, role)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, models.NormalizeEmail(email), passwordHash, fullName, city, string(role)))
}
