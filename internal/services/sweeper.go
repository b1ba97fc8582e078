package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/taskpop/backend/internal/models"
)

// TaskTTL is how long an open task stays listed before the sweeper
// removes it.
const TaskTTL = 24 * time.Hour

// EnqueueExpiryFunc enqueues one expire-task job, fire-and-forget.
// Provided by main as a closure over river.Client.Insert.
type EnqueueExpiryFunc func(ctx context.Context, taskID uuid.UUID) error

// Sweeper applies the expiry rule whenever the task collection is
// materialized: stale open tasks are dropped from the snapshot straight
// away, ahead of the delete's confirmation, and the delete itself runs as
// a background job. Enqueue failures are logged and swallowed; expiry is
// best-effort cleanup, not a user-facing action.
type Sweeper struct {
	enqueue EnqueueExpiryFunc
	log     *slog.Logger
	now     func() time.Time
}

func NewSweeper(enqueue EnqueueExpiryFunc, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{enqueue: enqueue, log: log, now: time.Now}
}

// Sweep returns the live subset of tasks. Open tasks whose age is at
// least TaskTTL are excluded and queued for deletion. Multiple concurrent
// observers may enqueue the same task; the delete is a no-op once the
// record is gone.
func (s *Sweeper) Sweep(ctx context.Context, tasks []*models.Task) []*models.Task {
	cutoff := s.now().Add(-TaskTTL)
	live := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == models.TaskStatusOpen && !t.CreatedAt.After(cutoff) {
			if s.enqueue != nil {
				if err := s.enqueue(ctx, t.ID); err != nil {
					s.log.Warn("enqueue expiry delete failed", "task_id", t.ID, "error", err)
				}
			}
			continue
		}
		live = append(live, t)
	}
	return live
}
