package engine

import (
	"context"
	"errors"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/events"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

// Deletion block reasons, surfaced in DeletionBlocked errors.
const (
	BlockedHasLoggedTime = "has_logged_time"
	BlockedHasProgress   = "has_progress"
)

// CanDeleteTask reports whether a task may be destructively removed and, if
// not, which condition blocks it. A task with recorded work is never
// deletable, regardless of its completion figure.
func (e Engine) CanDeleteTask(ctx context.Context, taskID string) (bool, string, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, "", errNotFound("task", taskID, err)
		}
		return false, "", err
	}
	logged, err := e.Repo.HasLoggedTime(ctx, taskID)
	if err != nil {
		return false, "", err
	}
	if logged {
		return false, BlockedHasLoggedTime, nil
	}
	if t.CompletionPercentage > 0 {
		return false, BlockedHasProgress, nil
	}
	return true, "", nil
}

// SoftDeleteTask archives the task and removes the live row as one
// transaction, re-validating deletability against transactional reads so a
// concurrent effort log cannot slip past the guard.
func (e Engine) SoftDeleteTask(ctx context.Context, taskID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("task", taskID, err)
		}
		return err
	}
	logged, err := e.Repo.HasLoggedTimeTx(ctx, tx, taskID)
	if err != nil {
		return err
	}
	reason := ""
	switch {
	case logged:
		reason = BlockedHasLoggedTime
	case t.CompletionPercentage > 0:
		reason = BlockedHasProgress
	}
	if reason != "" {
		return &Error{
			Code:     CodeDeletionBlocked,
			Message:  "task cannot be deleted: " + reason,
			EntityID: taskID,
			Step:     reason,
		}
	}

	now := e.timestamp()
	archived := domain.ArchivedTask{
		ID:                   t.ID,
		ProjectID:            t.ProjectID,
		Title:                t.Title,
		Description:          t.Description,
		EquityAllocation:     t.EquityAllocation,
		Status:               string(t.Status),
		CompletionPercentage: t.CompletionPercentage,
		EstimatedHours:       t.EstimatedHours,
		HoursLogged:          t.HoursLogged,
		CreatedAt:            t.CreatedAt,
		DeletedBy:            actorID,
		DeletedAt:            now,
	}
	if err := e.Repo.InsertArchivedTaskTx(ctx, tx, archived); err != nil {
		return err
	}
	if err := e.Repo.DeleteTaskTx(ctx, tx, t.ID); err != nil {
		return err
	}
	// The removed task leaves the completion weighting; keep the project
	// figure consistent in the same unit of work.
	if _, err := e.recomputeProjectCompletionTx(ctx, tx, t.ProjectID, now); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "task.archived", t.ProjectID, "task", t.ID, actorID, events.EventPayload{
		"title": t.Title,
	}); err != nil {
		return err
	}
	return tx.Commit()
}
