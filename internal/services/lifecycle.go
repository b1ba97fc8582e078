package services

import (
	"errors"

	"github.com/taskpop/backend/internal/models"
)

// ErrInvalidTransition is returned when a task is not in the state the
// requested transition starts from.
var ErrInvalidTransition = errors.New("invalid task state for this action")

// taskTransitions is the lifecycle graph:
//
//	open -> in-progress -> pending-confirmation -> completed
//
// Deletion (poster) and expiry (system) are terminal and handled
// separately via Deletable and the sweeper.
var taskTransitions = map[string]string{
	models.TaskStatusOpen:        models.TaskStatusInProgress,
	models.TaskStatusInProgress:  models.TaskStatusPendingConf,
	models.TaskStatusPendingConf: models.TaskStatusCompleted,
}

// CanTransition reports whether moving a task from one status to another
// is a legal lifecycle step.
func CanTransition(from, to string) bool {
	return taskTransitions[from] == to
}

// Deletable reports whether the poster may still delete (and be refunded
// for) a task in the given status. Completed tasks have already paid out
// and cannot be deleted.
func Deletable(status string) bool {
	switch status {
	case models.TaskStatusOpen, models.TaskStatusInProgress, models.TaskStatusPendingConf:
		return true
	}
	return false
}
