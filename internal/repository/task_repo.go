package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpop/backend/internal/models"
)

const taskColumns = `id, title, description, category, reward_pence, currency, lat, lng, status,
	poster_id, poster_name, poster_avatar, assignee_id, assignee_name, rating, created_at, completed_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var assigneeID *uuid.UUID
	var assigneeName *string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Category, &t.RewardPence, &t.Currency,
		&t.Location.Lat, &t.Location.Lng, &t.Status,
		&t.Poster.ID, &t.Poster.Name, &t.Poster.Avatar,
		&assigneeID, &assigneeName, &t.Rating, &t.CreatedAt, &t.CompletedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil {
		name := ""
		if assigneeName != nil {
			name = *assigneeName
		}
		t.Assignee = &models.Assignee{ID: *assigneeID, Name: name}
	}
	return &t, nil
}

// InsertTx inserts a new open task within the caller's transaction.
// created_at is server-assigned.
func (r *TaskRepo) InsertTx(ctx context.Context, tx pgx.Tx, t *models.Task) error {
	return tx.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, category, reward_pence, currency, lat, lng, status,
			poster_id, poster_name, poster_avatar)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, t.ID, t.Title, t.Description, t.Category, t.RewardPence, t.Currency,
		t.Location.Lat, t.Location.Lng, t.Status,
		t.Poster.ID, t.Poster.Name, t.Poster.Avatar).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// GetByIDForUpdate locks the task row. Call within a transaction.
func (r *TaskRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Task, error) {
	return scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
}

// Claim moves an open task to in-progress and records the assignee
// snapshot. The status condition makes concurrent claims first-committer-
// wins: the loser sees claimed == false.
func (r *TaskRepo) Claim(ctx context.Context, tx pgx.Tx, id uuid.UUID, assignee models.Assignee) (claimed bool, err error) {
	ct, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, assignee_id = $3, assignee_name = $4, updated_at = now()
		WHERE id = $1 AND status = $5
	`, id, models.TaskStatusInProgress, assignee.ID, assignee.Name, models.TaskStatusOpen)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// MarkDone moves an in-progress task to pending-confirmation. Single-record
// update, no cross-record invariant, so no transaction required.
func (r *TaskRepo) MarkDone(ctx context.Context, id, assigneeID uuid.UUID) (done bool, err error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3 AND assignee_id = $4
	`, id, models.TaskStatusPendingConf, models.TaskStatusInProgress, assigneeID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// Complete finalises a pending-confirmation task with its rating. A task
// already completed by a concurrent confirm matches nothing.
func (r *TaskRepo) Complete(ctx context.Context, tx pgx.Tx, id uuid.UUID, rating int, completedAt time.Time) (completed bool, err error) {
	ct, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, rating = $3, completed_at = $4, updated_at = now()
		WHERE id = $1 AND status = $5
	`, id, models.TaskStatusCompleted, rating, completedAt, models.TaskStatusPendingConf)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// DeleteTx removes a task that has not completed yet.
func (r *TaskRepo) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (deleted bool, err error) {
	ct, err := tx.Exec(ctx, `
		DELETE FROM tasks WHERE id = $1 AND status <> $2
	`, id, models.TaskStatusCompleted)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// DeleteExpired removes an open task older than the cutoff. Returns false
// without error when the row is already gone or no longer open, so that
// concurrent sweeps of the same task stay no-ops.
func (r *TaskRepo) DeleteExpired(ctx context.Context, id uuid.UUID, cutoff time.Time) (deleted bool, err error) {
	ct, err := r.pool.Exec(ctx, `
		DELETE FROM tasks WHERE id = $1 AND status = $2 AND created_at <= $3
	`, id, models.TaskStatusOpen, cutoff)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// List returns all tasks ordered newest first, matching the feed's
// snapshot ordering.
func (r *TaskRepo) List(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
