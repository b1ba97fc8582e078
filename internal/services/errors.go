package services

import (
	"errors"
	"fmt"
)

// Error taxonomy of the escrow engine. Every money-moving failure is
// surfaced typed to the caller; nothing is retried automatically.
var (
	ErrInvalidReward     = errors.New("invalid reward amount")
	ErrInvalidCategory   = errors.New("unknown task category")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyClaimed    = errors.New("task already claimed")
	ErrAlreadyCompleted  = errors.New("task already completed")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("actor is not permitted to perform this action")
)

// InsufficientFundsError carries the exact shortfall so callers can show
// the reason rather than a generic failure. errors.Is(err,
// ErrInsufficientFunds) holds for it.
type InsufficientFundsError struct {
	BalancePence  int64
	RequiredPence int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %dp, need %dp (short %dp)",
		e.BalancePence, e.RequiredPence, e.RequiredPence-e.BalancePence)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }
