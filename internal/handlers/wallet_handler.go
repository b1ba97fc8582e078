package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/taskpop/backend/internal/middleware"
	"github.com/taskpop/backend/internal/models"
	"github.com/taskpop/backend/internal/services"
)

// WalletService reads (and lazily initialises) a user's wallet.
type WalletService interface {
	Wallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
}

// LedgerLister lists a user's wallet audit entries.
type LedgerLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error)
}

// ProfileUpdater mutates profile metadata on the wallet document.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) error
}

type WalletHandler struct {
	Wallets WalletService
	Ledger  LedgerLister
	Profile ProfileUpdater
	Logger  *slog.Logger
}

// GetWallet handles GET /api/v1/wallet. First read creates the balance at
// the demo-ledger default.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	wallet, err := h.Wallets.Wallet(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, `{"error":"wallet not found"}`, http.StatusNotFound)
			return
		}
		h.Logger.Error("get wallet", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// ListLedger handles GET /api/v1/wallet/ledger.
func (h *WalletHandler) ListLedger(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	entries, err := h.Ledger.ListByUser(r.Context(), ident.UserID)
	if err != nil {
		h.Logger.Error("list ledger", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type updateSettingsRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateSettings handles PATCH /api/v1/account/settings. Profile metadata
// only; balances move exclusively through the escrow engine.
func (h *WalletHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		http.Error(w, `{"error":"display_name is required"}`, http.StatusBadRequest)
		return
	}
	if err := h.Profile.UpdateProfile(r.Context(), ident.UserID, name); err != nil {
		h.Logger.Error("update settings", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
