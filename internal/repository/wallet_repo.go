package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpop/backend/internal/models"
)

// WalletRepo reads and mutates the wallet columns of the users table.
// A NULL balance_pence means the wallet has never been initialised.
type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetByID returns the wallet view of a user. An uninitialised balance is
// presented as the default starting balance; it is only persisted once a
// transaction touches the wallet (see EnsureBalanceForUpdate).
func (r *WalletRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var w models.Wallet
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, email, COALESCE(balance_pence, $2), created_at, updated_at
		FROM users WHERE id = $1
	`, id, models.DefaultBalancePence).Scan(&w.UserID, &w.DisplayName, &w.Email, &w.BalancePence, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// EnsureBalanceForUpdate locks the user row, initialises the balance to the
// default if it has never been set, and returns the current balance.
// Call within a transaction before any balance check or mutation.
func (r *WalletRepo) EnsureBalanceForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int64, error) {
	var balance *int64
	err := tx.QueryRow(ctx, `
		SELECT balance_pence FROM users WHERE id = $1 FOR UPDATE
	`, id).Scan(&balance)
	if err != nil {
		return 0, err
	}
	if balance != nil {
		return *balance, nil
	}
	_, err = tx.Exec(ctx, `
		UPDATE users SET balance_pence = $2, updated_at = now() WHERE id = $1
	`, id, models.DefaultBalancePence)
	if err != nil {
		return 0, err
	}
	return models.DefaultBalancePence, nil
}

// Debit atomically deducts amount if the balance covers it. Returns the new
// balance; pgx.ErrNoRows when the conditional update matched nothing.
func (r *WalletRepo) Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountPence int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance_pence = balance_pence - $1, updated_at = now()
		WHERE id = $2 AND balance_pence >= $1
		RETURNING balance_pence
	`, amountPence, id).Scan(&newBalance)
	return newBalance, err
}

// Credit adds amount to the balance and returns the new balance.
func (r *WalletRepo) Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountPence int64) (newBalance int64, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE users SET balance_pence = balance_pence + $1, updated_at = now()
		WHERE id = $2
		RETURNING balance_pence
	`, amountPence, id).Scan(&newBalance)
	return newBalance, err
}

// UpdateProfile mutates the profile metadata only; balance is untouched.
func (r *WalletRepo) UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE users SET display_name = $2, updated_at = now() WHERE id = $1
	`, id, displayName)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
