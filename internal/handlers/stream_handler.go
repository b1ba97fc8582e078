package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/taskpop/backend/internal/feed"
	"github.com/taskpop/backend/internal/middleware"
	"github.com/taskpop/backend/internal/models"
)

// Subscriptions is the feed surface the SSE handlers need.
type Subscriptions interface {
	SubscribeTasks(ctx context.Context, cb feed.TaskCallback) (cancel func(), err error)
	SubscribeWallet(ctx context.Context, userID uuid.UUID, cb feed.WalletCallback) (cancel func(), err error)
}

// StreamHandler exposes the live feed over server-sent events. Client
// disconnect cancels the subscription; a slow client skips intermediate
// snapshots and converges on the next one.
type StreamHandler struct {
	Feed   Subscriptions
	Logger *slog.Logger
}

// StreamTasks handles GET /api/v1/tasks/stream.
func (h *StreamHandler) StreamTasks(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	snapshots := make(chan []*models.Task, 1)
	cancel, err := h.Feed.SubscribeTasks(r.Context(), func(tasks []*models.Task) {
		// Keep only the freshest snapshot for slow consumers.
		select {
		case snapshots <- tasks:
		default:
			select {
			case <-snapshots:
			default:
			}
			snapshots <- tasks
		}
	})
	if err != nil {
		h.Logger.Error("subscribe tasks", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	defer cancel()

	h.serveSSE(w, r, flusher, func() (any, bool) {
		select {
		case <-r.Context().Done():
			return nil, false
		case tasks := <-snapshots:
			return tasks, true
		}
	})
}

// StreamWallet handles GET /api/v1/wallet/stream for the authenticated
// user's own wallet.
func (h *StreamHandler) StreamWallet(w http.ResponseWriter, r *http.Request) {
	ident := middleware.IdentityFromCtx(r.Context())
	if ident == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	snapshots := make(chan *models.Wallet, 1)
	cancel, err := h.Feed.SubscribeWallet(r.Context(), ident.UserID, func(wallet *models.Wallet) {
		select {
		case snapshots <- wallet:
		default:
			select {
			case <-snapshots:
			default:
			}
			snapshots <- wallet
		}
	})
	if err != nil {
		h.Logger.Error("subscribe wallet", "user_id", ident.UserID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	defer cancel()

	h.serveSSE(w, r, flusher, func() (any, bool) {
		select {
		case <-r.Context().Done():
			return nil, false
		case wallet := <-snapshots:
			return wallet, true
		}
	})
}

func (h *StreamHandler) serveSSE(w http.ResponseWriter, r *http.Request, flusher http.Flusher, next func() (any, bool)) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		payload, ok := next()
		if !ok {
			return
		}
		data, err := json.Marshal(payload)
		if err != nil {
			h.Logger.Error("marshal stream payload", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}
