package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskpop/backend/internal/models"
)

type captureEnqueue struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (c *captureEnqueue) fn(_ context.Context, taskID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, taskID)
	return c.err
}

func sweepTask(status string, age time.Duration) *models.Task {
	return &models.Task{
		ID:        uuid.New(),
		Status:    status,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestSweep(t *testing.T) {
	fresh := sweepTask(models.TaskStatusOpen, time.Hour)
	stale := sweepTask(models.TaskStatusOpen, 25*time.Hour)
	staleClaimed := sweepTask(models.TaskStatusInProgress, 48*time.Hour)
	stalePending := sweepTask(models.TaskStatusPendingConf, 48*time.Hour)

	capture := &captureEnqueue{}
	s := NewSweeper(capture.fn, nil)

	live := s.Sweep(context.Background(), []*models.Task{fresh, stale, staleClaimed, stalePending})

	if len(live) != 3 {
		t.Fatalf("live tasks: got %d, want 3", len(live))
	}
	for _, lt := range live {
		if lt.ID == stale.ID {
			t.Error("stale open task should be excluded from the snapshot")
		}
	}

	// Only the stale open task is queued for deletion.
	if len(capture.ids) != 1 || capture.ids[0] != stale.ID {
		t.Errorf("enqueued deletes: got %v, want [%s]", capture.ids, stale.ID)
	}
}

func TestSweep_ExactlyAtTTL(t *testing.T) {
	boundary := sweepTask(models.TaskStatusOpen, TaskTTL)

	capture := &captureEnqueue{}
	s := NewSweeper(capture.fn, nil)

	live := s.Sweep(context.Background(), []*models.Task{boundary})
	if len(live) != 0 {
		t.Errorf("a task exactly at the TTL boundary should be expired, got %d live", len(live))
	}
}

func TestSweep_EnqueueFailureIsSwallowed(t *testing.T) {
	stale := sweepTask(models.TaskStatusOpen, 30*time.Hour)

	capture := &captureEnqueue{err: errors.New("queue down")}
	s := NewSweeper(capture.fn, nil)

	// The snapshot still drops the task even when the delete can't be
	// queued; the next materialization retries.
	live := s.Sweep(context.Background(), []*models.Task{stale})
	if len(live) != 0 {
		t.Errorf("stale task should be excluded despite enqueue failure, got %d live", len(live))
	}
}

func TestSweep_NilEnqueue(t *testing.T) {
	stale := sweepTask(models.TaskStatusOpen, 30*time.Hour)
	s := NewSweeper(nil, nil)

	live := s.Sweep(context.Background(), []*models.Task{stale})
	if len(live) != 0 {
		t.Errorf("sweep without an enqueue func should still filter, got %d live", len(live))
	}
}
