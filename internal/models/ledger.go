package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet ledger entry types.
const (
	LedgerEntryEscrowLock    = "escrow_lock"    // debit: reward held against a posted task
	LedgerEntryEscrowRelease = "escrow_release" // credit: payout to the assignee at confirmation
	LedgerEntryRefund        = "refund"         // credit: reward returned to the poster on delete
)

// LedgerEntry records one wallet mutation. BalanceAfter is the wallet
// balance as committed in the same transaction as the entry.
type LedgerEntry struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	TaskID            *uuid.UUID `json:"task_id,omitempty"`
	EntryType         string     `json:"entry_type"`
	AmountPence       int64      `json:"amount_pence"`
	BalanceAfterPence int64      `json:"balance_after_pence"`
	CreatedAt         time.Time  `json:"created_at"`
}
