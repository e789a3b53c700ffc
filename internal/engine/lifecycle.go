package engine

import (
	"context"
	"errors"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/events"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

// taskTransitions is the single source of truth for manual task status moves.
// approved is absent as a target on purpose: only the approval path may grant
// it, and done is reachable only once approved.
var taskTransitions = map[domain.TaskStatus][]domain.TaskStatus{
	domain.TaskOpen:       {domain.TaskInProgress},
	domain.TaskInProgress: {domain.TaskReview, domain.TaskBlocked},
	domain.TaskReview:     {domain.TaskBlocked},
	domain.TaskBlocked:    {domain.TaskInProgress, domain.TaskReview},
	domain.TaskApproved:   {domain.TaskDone},
	domain.TaskDone:       {},
}

func ensureTaskTransition(taskID string, from, to domain.TaskStatus) error {
	for _, allowed := range taskTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return errInvalidTransition(taskID, string(from), string(to))
}

// SetTaskStatus applies a manual status move (a user dragging a card).
// Manual moves never touch equity or completion fields; equity is only ever
// mutated by ApproveTask.
func (e Engine) SetTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, actorID string) (domain.Task, error) {
	if _, err := domain.ParseTaskStatus(string(status)); err != nil {
		return domain.Task{}, errInvalidInput("%v", err)
	}
	if status == domain.TaskApproved {
		return domain.Task{}, &Error{
			Code:     CodeInvalidTransition,
			Message:  "approved is only reachable through task approval",
			EntityID: taskID,
		}
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Task{}, errNotFound("task", taskID, err)
		}
		return domain.Task{}, err
	}
	if t.Status == status {
		return t, nil
	}
	if err := ensureTaskTransition(t.ID, t.Status, status); err != nil {
		return t, err
	}
	from := t.Status
	now := e.timestamp()
	t.Status = status
	t.LastActivityAt = now
	t.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateTaskTx(ctx, tx, t); err != nil {
		return t, err
	}
	if err := e.Events.Append(ctx, tx, "task.status.changed", t.ProjectID, "task", t.ID, actorID, events.EventPayload{
		"from": string(from),
		"to":   string(status),
	}); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	return t, nil
}
