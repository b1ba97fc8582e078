// Package feed fans committed store changes out to live subscribers as
// full snapshots, the way the map and wallet views consume them.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/taskpop/backend/internal/models"
)

// TaskLister materializes the raw task collection, newest first.
type TaskLister interface {
	List(ctx context.Context) ([]*models.Task, error)
}

// WalletReader reads one user's wallet document.
type WalletReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
}

// TaskSweeper filters a raw listing down to live tasks, triggering expiry
// deletes as a side effect.
type TaskSweeper interface {
	Sweep(ctx context.Context, tasks []*models.Task) []*models.Task
}

// TaskCallback receives the full current task snapshot, once per change.
type TaskCallback func(tasks []*models.Task)

// WalletCallback receives the full current wallet document, once per change.
type WalletCallback func(w *models.Wallet)

// Hub is the in-process subscription feed. Multiple subscribers per
// collection are independent; cancelling one never affects another.
// Delivery order follows the store's commit notifications; subscribers
// converge on the store's true state.
type Hub struct {
	tasks   TaskLister
	wallets WalletReader
	sweeper TaskSweeper
	log     *slog.Logger

	mu         sync.Mutex
	nextID     int
	taskSubs   map[int]TaskCallback
	walletSubs map[uuid.UUID]map[int]WalletCallback
}

func NewHub(tasks TaskLister, wallets WalletReader, sweeper TaskSweeper, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		tasks:      tasks,
		wallets:    wallets,
		sweeper:    sweeper,
		log:        log,
		taskSubs:   make(map[int]TaskCallback),
		walletSubs: make(map[uuid.UUID]map[int]WalletCallback),
	}
}

// Snapshot materializes the current live task list: full listing with the
// expiry sweep applied.
func (h *Hub) Snapshot(ctx context.Context) ([]*models.Task, error) {
	tasks, err := h.tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	if h.sweeper != nil {
		tasks = h.sweeper.Sweep(ctx, tasks)
	}
	return tasks, nil
}

// SubscribeTasks registers cb and delivers the current snapshot
// immediately. The returned cancel is idempotent.
func (h *Hub) SubscribeTasks(ctx context.Context, cb TaskCallback) (cancel func(), err error) {
	snapshot, err := h.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.taskSubs[id] = cb
	h.mu.Unlock()

	cb(snapshot)

	return func() {
		h.mu.Lock()
		delete(h.taskSubs, id)
		h.mu.Unlock()
	}, nil
}

// SubscribeWallet registers cb for one user's wallet and delivers the
// current document immediately.
func (h *Hub) SubscribeWallet(ctx context.Context, userID uuid.UUID, cb WalletCallback) (cancel func(), err error) {
	w, err := h.wallets.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	subs := h.walletSubs[userID]
	if subs == nil {
		subs = make(map[int]WalletCallback)
		h.walletSubs[userID] = subs
	}
	subs[id] = cb
	h.mu.Unlock()

	cb(w)

	return func() {
		h.mu.Lock()
		if subs := h.walletSubs[userID]; subs != nil {
			delete(subs, id)
			if len(subs) == 0 {
				delete(h.walletSubs, userID)
			}
		}
		h.mu.Unlock()
	}, nil
}

// TasksChanged re-materializes the snapshot and fans it out to every task
// subscriber. Called after each committed task mutation.
func (h *Hub) TasksChanged(ctx context.Context) {
	h.mu.Lock()
	if len(h.taskSubs) == 0 {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	snapshot, err := h.Snapshot(ctx)
	if err != nil {
		h.log.Error("task snapshot for fan-out failed", "error", err)
		return
	}

	for _, cb := range h.taskCallbacks() {
		cb(snapshot)
	}
}

// WalletChanged fans the user's current wallet to that user's
// subscribers. Called after each committed wallet mutation.
func (h *Hub) WalletChanged(ctx context.Context, userID uuid.UUID) {
	h.mu.Lock()
	subs := h.walletSubs[userID]
	cbs := make([]WalletCallback, 0, len(subs))
	for _, cb := range subs {
		cbs = append(cbs, cb)
	}
	h.mu.Unlock()

	if len(cbs) == 0 {
		return
	}
	w, err := h.wallets.GetByID(ctx, userID)
	if err != nil {
		h.log.Error("wallet read for fan-out failed", "user_id", userID, "error", err)
		return
	}
	for _, cb := range cbs {
		cb(w)
	}
}

func (h *Hub) taskCallbacks() []TaskCallback {
	h.mu.Lock()
	defer h.mu.Unlock()
	cbs := make([]TaskCallback, 0, len(h.taskSubs))
	for _, cb := range h.taskSubs {
		cbs = append(cbs, cb)
	}
	return cbs
}
