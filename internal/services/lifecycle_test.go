package services

import (
	"testing"

	"github.com/taskpop/backend/internal/models"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{models.TaskStatusOpen, models.TaskStatusInProgress},
		{models.TaskStatusInProgress, models.TaskStatusPendingConf},
		{models.TaskStatusPendingConf, models.TaskStatusCompleted},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Errorf("CanTransition(%q, %q) = false, want true", pair[0], pair[1])
		}
	}

	denied := [][2]string{
		{models.TaskStatusOpen, models.TaskStatusPendingConf},
		{models.TaskStatusOpen, models.TaskStatusCompleted},
		{models.TaskStatusInProgress, models.TaskStatusOpen},
		{models.TaskStatusInProgress, models.TaskStatusCompleted},
		{models.TaskStatusPendingConf, models.TaskStatusInProgress},
		{models.TaskStatusCompleted, models.TaskStatusOpen},
		{models.TaskStatusCompleted, models.TaskStatusCompleted},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Errorf("CanTransition(%q, %q) = true, want false", pair[0], pair[1])
		}
	}
}

func TestDeletable(t *testing.T) {
	for _, status := range []string{models.TaskStatusOpen, models.TaskStatusInProgress, models.TaskStatusPendingConf} {
		if !Deletable(status) {
			t.Errorf("Deletable(%q) = false, want true", status)
		}
	}
	if Deletable(models.TaskStatusCompleted) {
		t.Error("Deletable(completed) = true, want false")
	}
	if Deletable("unknown") {
		t.Error("Deletable(unknown) = true, want false")
	}
}
