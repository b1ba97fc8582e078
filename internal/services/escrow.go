package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/taskpop/backend/internal/models"
)

// Actor is the authenticated identity performing an engine operation,
// resolved server-side from the session token, never from request fields.
type Actor struct {
	ID     uuid.UUID
	Name   string
	Avatar string
}

// TxBeginner abstracts transaction creation so tests don't need a
// pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WalletStore is the minimal wallet interface for the engine.
type WalletStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	EnsureBalanceForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int64, error)
	Debit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountPence int64) (int64, error)
	Credit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountPence int64) (int64, error)
}

// TaskStore is the minimal task interface for the engine.
type TaskStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error)
	Claim(ctx context.Context, tx pgx.Tx, id uuid.UUID, assignee models.Assignee) (bool, error)
	MarkDone(ctx context.Context, id, assigneeID uuid.UUID) (bool, error)
	Complete(ctx context.Context, tx pgx.Tx, id uuid.UUID, rating int, completedAt time.Time) (bool, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	DeleteExpired(ctx context.Context, id uuid.UUID, cutoff time.Time) (bool, error)
}

// LedgerStore appends wallet audit entries.
type LedgerStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
}

// FeedNotifier is told about committed changes so live subscribers can be
// fanned a fresh snapshot.
type FeedNotifier interface {
	TasksChanged(ctx context.Context)
	WalletChanged(ctx context.Context, userID uuid.UUID)
}

// EscrowEngine couples each task lifecycle transition to its wallet
// mutation, atomically. Conflicting concurrent writers lose on the
// store's conditional updates and are surfaced typed; nothing is retried
// here.
type EscrowEngine struct {
	db      TxBeginner
	wallets WalletStore
	tasks   TaskStore
	ledger  LedgerStore
	feed    FeedNotifier
	log     *slog.Logger
	now     func() time.Time
}

func NewEscrowEngine(db TxBeginner, wallets WalletStore, tasks TaskStore, ledger LedgerStore, feed FeedNotifier, log *slog.Logger) *EscrowEngine {
	if log == nil {
		log = slog.Default()
	}
	return &EscrowEngine{db: db, wallets: wallets, tasks: tasks, ledger: ledger, feed: feed, log: log, now: time.Now}
}

// TaskInput is the validated payload for PostTask. RewardPence of zero is
// a volunteer task.
type TaskInput struct {
	Title       string
	Description string
	Category    string
	RewardPence int64
	Location    models.Location
}

// PostTask debits the poster's wallet by the reward and inserts the open
// task, in one transaction. The wallet is initialised to the default
// starting balance if this is its first use.
func (e *EscrowEngine) PostTask(ctx context.Context, actor Actor, in TaskInput) (*models.Task, error) {
	if in.RewardPence < 0 {
		return nil, ErrInvalidReward
	}
	if !models.ValidCategory(in.Category) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, in.Category)
	}

	task := &models.Task{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		RewardPence: in.RewardPence,
		Currency:    models.DefaultCurrency,
		Location:    in.Location,
		Status:      models.TaskStatusOpen,
		Poster:      models.Poster{ID: actor.ID, Name: actor.Name, Avatar: actor.Avatar},
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin post tx: %w", err)
	}
	defer tx.Rollback(ctx)

	balance, err := e.wallets.EnsureBalanceForUpdate(ctx, tx, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if balance < in.RewardPence {
		return nil, &InsufficientFundsError{BalancePence: balance, RequiredPence: in.RewardPence}
	}

	if in.RewardPence > 0 {
		newBalance, err := e.wallets.Debit(ctx, tx, actor.ID, in.RewardPence)
		if err != nil {
			return nil, err
		}
		if err := e.ledger.CreateTx(ctx, tx, &models.LedgerEntry{
			ID: uuid.New(), UserID: actor.ID, TaskID: &task.ID,
			EntryType: models.LedgerEntryEscrowLock, AmountPence: in.RewardPence, BalanceAfterPence: newBalance,
		}); err != nil {
			return nil, err
		}
	}

	if err := e.tasks.InsertTx(ctx, tx, task); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit post tx: %w", err)
	}

	e.notifyTasks(ctx)
	e.notifyWallet(ctx, actor.ID)
	return task, nil
}

// ClaimTask moves an open task to in-progress with the actor as assignee.
// No wallet mutation. Exactly one of two concurrent claimants wins; the
// other gets ErrAlreadyClaimed and should refresh.
func (e *EscrowEngine) ClaimTask(ctx context.Context, actor Actor, taskID uuid.UUID) error {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin claim tx: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := e.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if task.Poster.ID == actor.ID {
		return fmt.Errorf("%w: poster cannot claim own task", ErrUnauthorized)
	}
	if task.Status != models.TaskStatusOpen {
		return ErrAlreadyClaimed
	}

	claimed, err := e.tasks.Claim(ctx, tx, taskID, models.Assignee{ID: actor.ID, Name: actor.Name})
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyClaimed
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit claim tx: %w", err)
	}

	e.notifyTasks(ctx)
	return nil
}

// MarkDone moves an in-progress task to pending-confirmation. Single
// record, no cross-record invariant, so no transaction.
func (e *EscrowEngine) MarkDone(ctx context.Context, actor Actor, taskID uuid.UUID) error {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if task.Assignee == nil || task.Assignee.ID != actor.ID {
		return fmt.Errorf("%w: only the assignee can mark a task done", ErrUnauthorized)
	}

	done, err := e.tasks.MarkDone(ctx, taskID, actor.ID)
	if err != nil {
		return err
	}
	if !done {
		return ErrInvalidTransition
	}
	e.notifyTasks(ctx)
	return nil
}

// ConfirmAndRate completes a pending-confirmation task: credits the
// assignee's wallet by the reward and records the rating, in one
// transaction. This is the only point escrow funds reach the doer.
// Rating and completion are one transition so an unrated completed state
// never exists.
func (e *EscrowEngine) ConfirmAndRate(ctx context.Context, actor Actor, taskID uuid.UUID, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := e.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if task.Poster.ID != actor.ID {
		return fmt.Errorf("%w: only the poster can confirm", ErrUnauthorized)
	}
	if task.Status == models.TaskStatusCompleted {
		return ErrAlreadyCompleted
	}
	if !CanTransition(task.Status, models.TaskStatusCompleted) {
		return ErrInvalidTransition
	}
	if task.Assignee == nil {
		return fmt.Errorf("task %s is pending confirmation without assignee", taskID)
	}

	if task.RewardPence > 0 {
		if _, err := e.wallets.EnsureBalanceForUpdate(ctx, tx, task.Assignee.ID); err != nil {
			return err
		}
		newBalance, err := e.wallets.Credit(ctx, tx, task.Assignee.ID, task.RewardPence)
		if err != nil {
			return err
		}
		if err := e.ledger.CreateTx(ctx, tx, &models.LedgerEntry{
			ID: uuid.New(), UserID: task.Assignee.ID, TaskID: &taskID,
			EntryType: models.LedgerEntryEscrowRelease, AmountPence: task.RewardPence, BalanceAfterPence: newBalance,
		}); err != nil {
			return err
		}
	}

	completed, err := e.tasks.Complete(ctx, tx, taskID, rating, e.now())
	if err != nil {
		return err
	}
	if !completed {
		return ErrAlreadyCompleted
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit confirm tx: %w", err)
	}

	e.notifyTasks(ctx)
	e.notifyWallet(ctx, task.Assignee.ID)
	return nil
}

// DeleteTask removes a not-yet-completed task and refunds the escrowed
// reward to the poster, in one transaction.
func (e *EscrowEngine) DeleteTask(ctx context.Context, actor Actor, taskID uuid.UUID) error {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback(ctx)

	task, err := e.tasks.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if task.Poster.ID != actor.ID {
		return fmt.Errorf("%w: only the poster can delete", ErrUnauthorized)
	}
	if !Deletable(task.Status) {
		return ErrAlreadyCompleted
	}

	if task.RewardPence > 0 {
		if _, err := e.wallets.EnsureBalanceForUpdate(ctx, tx, task.Poster.ID); err != nil {
			return err
		}
		newBalance, err := e.wallets.Credit(ctx, tx, task.Poster.ID, task.RewardPence)
		if err != nil {
			return err
		}
		if err := e.ledger.CreateTx(ctx, tx, &models.LedgerEntry{
			ID: uuid.New(), UserID: task.Poster.ID, TaskID: &taskID,
			EntryType: models.LedgerEntryRefund, AmountPence: task.RewardPence, BalanceAfterPence: newBalance,
		}); err != nil {
			return err
		}
	}

	deleted, err := e.tasks.DeleteTx(ctx, tx, taskID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAlreadyCompleted
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete tx: %w", err)
	}

	e.notifyTasks(ctx)
	e.notifyWallet(ctx, task.Poster.ID)
	return nil
}

// ExpireTask is the system-triggered expiry delete: open tasks past the
// TTL are removed without refund. It is a no-op, not an error, when the
// task is already gone or no longer open, so concurrent sweeps are safe.
func (e *EscrowEngine) ExpireTask(ctx context.Context, taskID uuid.UUID) error {
	deleted, err := e.tasks.DeleteExpired(ctx, taskID, e.now().Add(-TaskTTL))
	if err != nil {
		return err
	}
	if deleted {
		e.log.Info("expired open task", "task_id", taskID)
		e.notifyTasks(ctx)
	}
	return nil
}

// GetTask looks up a single task.
func (e *EscrowEngine) GetTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// Wallet returns the user's wallet, initialising the balance to the
// demo-ledger default on first read.
func (e *EscrowEngine) Wallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin wallet tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := e.wallets.EnsureBalanceForUpdate(ctx, tx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit wallet tx: %w", err)
	}
	return e.wallets.GetByID(ctx, userID)
}

func (e *EscrowEngine) notifyTasks(ctx context.Context) {
	if e.feed != nil {
		e.feed.TasksChanged(ctx)
	}
}

func (e *EscrowEngine) notifyWallet(ctx context.Context, userID uuid.UUID) {
	if e.feed != nil {
		e.feed.WalletChanged(ctx, userID)
	}
}
