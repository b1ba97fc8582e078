package expiry

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

type ExpireTaskJobArgs struct {
	TaskID uuid.UUID `json:"task_id"`
}

func (ExpireTaskJobArgs) Kind() string { return "expire_task" }

// TaskExpirer performs the idempotent expiry delete.
type TaskExpirer interface {
	ExpireTask(ctx context.Context, taskID uuid.UUID) error
}

// ExpireTaskWorker processes the sweeper's fire-and-forget expiry jobs.
// The underlying delete is a no-op once the task is gone, so duplicate
// jobs from concurrent observers are harmless.
type ExpireTaskWorker struct {
	river.WorkerDefaults[ExpireTaskJobArgs]
	engine TaskExpirer
	log    *slog.Logger
}

func NewExpireTaskWorker(engine TaskExpirer, log *slog.Logger) *ExpireTaskWorker {
	if log == nil {
		log = slog.Default()
	}
	return &ExpireTaskWorker{engine: engine, log: log}
}

func (w *ExpireTaskWorker) Work(ctx context.Context, job *river.Job[ExpireTaskJobArgs]) error {
	// Expiry is best-effort cleanup: failures are logged, never surfaced
	// to a user and never worth a retry storm.
	if err := w.engine.ExpireTask(ctx, job.Args.TaskID); err != nil {
		w.log.Warn("expiry delete failed", "task_id", job.Args.TaskID, "error", err)
	}
	return nil
}
