package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultBalancePence is the demo-ledger starting balance (500 units).
// A wallet whose balance column is NULL has never been touched; the first
// transaction that reads it initialises it to this value.
const DefaultBalancePence int64 = 50000

// DefaultCurrency is the single currency of the closed-loop demo ledger.
const DefaultCurrency = "GBP"

// Wallet is the per-user wallet document: profile metadata plus the
// escrow-tracked balance.
type Wallet struct {
	UserID       uuid.UUID `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	BalancePence int64     `json:"balance_pence"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
