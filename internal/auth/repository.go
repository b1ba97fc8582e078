package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user. The wallet balance column stays NULL until
// the first transaction that touches the wallet initialises it.
func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName string) (*Account, error) {
	acc := &Account{ID: uuid.New(), Email: email, DisplayName: displayName}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, acc.ID, acc.Email, acc.DisplayName, passwordHash).Scan(&acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// GetByEmail returns the account and password hash, or (nil, "", nil)
// when no such user exists.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*Account, string, error) {
	var acc Account
	var hash string
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM users WHERE email = $1
	`, email).Scan(&acc.ID, &acc.Email, &acc.DisplayName, &hash, &acc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return &acc, hash, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	var acc Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, display_name, created_at
		FROM users WHERE id = $1
	`, id).Scan(&acc.ID, &acc.Email, &acc.DisplayName, &acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
