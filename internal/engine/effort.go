package engine

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/events"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

// EffortResult is the task snapshot after a logged effort plus the project's
// recomputed completion.
type EffortResult struct {
	TaskID               string            `json:"task_id"`
	TimeEntryID          string            `json:"time_entry_id"`
	HoursLogged          float64           `json:"hours_logged"`
	CompletionPercentage int               `json:"completion_percentage"`
	Status               domain.TaskStatus `json:"status"`
	ProjectCompletion    int               `json:"project_completion"`
}

// LogEffort appends a time entry, updates the task's cumulative hours and
// effort-derived completion, and recomputes the owning project's completion.
// Reaching 100% moves the task to review and mirrors review onto the linked
// accepted job. The whole cascade commits or rolls back as one unit.
func (e Engine) LogEffort(ctx context.Context, taskID, actorID string, hours float64, description string) (EffortResult, error) {
	if hours <= 0 {
		return EffortResult{}, errInvalidInput("hours must be positive, got %v", hours)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return EffortResult{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return EffortResult{}, errNotFound("task", taskID, err)
		}
		return EffortResult{}, err
	}
	if _, err := e.Repo.GetProjectTx(ctx, tx, t.ProjectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return EffortResult{}, errNotFound("project", t.ProjectID, err)
		}
		return EffortResult{}, err
	}

	now := e.timestamp()
	entry := domain.TimeEntry{
		ID:          uuid.New().String(),
		TaskID:      t.ID,
		ActorID:     actorID,
		Hours:       hours,
		Description: description,
		CreatedAt:   now,
	}
	if err := e.Repo.InsertTimeEntryTx(ctx, tx, entry); err != nil {
		return EffortResult{}, err
	}

	t.HoursLogged += hours
	t.LastActivityAt = now
	t.UpdatedAt = now
	reachedFull := false
	if t.EstimatedHours != nil && *t.EstimatedHours > 0 {
		pct := int(math.Round(t.HoursLogged / *t.EstimatedHours * 100))
		if pct > 100 {
			pct = 100
		}
		t.CompletionPercentage = pct
		if pct == 100 {
			reachedFull = true
		}
	}
	// Reaching full completion parks the task in review; re-entering review
	// is a no-op and approved/done tasks are never demoted.
	if reachedFull {
		switch t.Status {
		case domain.TaskOpen, domain.TaskInProgress, domain.TaskBlocked:
			t.Status = domain.TaskReview
			if t.AcceptedJobID != nil {
				if err := e.markAcceptedJobStatusTx(ctx, tx, *t.AcceptedJobID, domain.AcceptedJobReview, now); err != nil {
					return EffortResult{}, err
				}
			}
		}
	}
	if err := e.Repo.UpdateTaskTx(ctx, tx, t); err != nil {
		return EffortResult{}, err
	}

	projectPct, err := e.recomputeProjectCompletionTx(ctx, tx, t.ProjectID, now)
	if err != nil {
		return EffortResult{}, err
	}

	if err := e.Events.Append(ctx, tx, "effort.logged", t.ProjectID, "task", t.ID, actorID, events.EventPayload{
		"hours":        hours,
		"hours_logged": t.HoursLogged,
		"completion":   t.CompletionPercentage,
		"status":       string(t.Status),
	}); err != nil {
		return EffortResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return EffortResult{}, err
	}
	return EffortResult{
		TaskID:               t.ID,
		TimeEntryID:          entry.ID,
		HoursLogged:          t.HoursLogged,
		CompletionPercentage: t.CompletionPercentage,
		Status:               t.Status,
		ProjectCompletion:    projectPct,
	}, nil
}

// RecomputeProjectCompletion recalculates a project's equity-weighted
// completion from its current tasks. Idempotent.
func (e Engine) RecomputeProjectCompletion(ctx context.Context, projectID string) (int, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	pct, err := e.recomputeProjectCompletionTx(ctx, tx, projectID, e.timestamp())
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return pct, nil
}

// recomputeProjectCompletionTx computes the equity-weighted mean of task
// completion. Equity is the unit of account: a zero-equity task does not
// move the project's displayed completion.
func (e Engine) recomputeProjectCompletionTx(ctx context.Context, tx *sql.Tx, projectID, now string) (int, error) {
	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, errNotFound("project", projectID, err)
		}
		return 0, err
	}
	tasks, err := e.Repo.ListTasksTx(ctx, tx, repo.TaskFilters{ProjectID: projectID})
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return p.CompletionPercentage, nil
	}
	var totalEquity, completedEquity float64
	for _, t := range tasks {
		totalEquity += t.EquityAllocation
		completedEquity += t.EquityAllocation * float64(t.CompletionPercentage) / 100
	}
	pct := 0
	if totalEquity > 0 {
		pct = int(math.Round(completedEquity / totalEquity * 100))
	}
	if err := e.Repo.UpdateProjectCompletionTx(ctx, tx, projectID, pct, now); err != nil {
		return 0, err
	}
	return pct, nil
}

func (e Engine) markAcceptedJobStatusTx(ctx context.Context, tx *sql.Tx, jobID, status, now string) error {
	job, err := e.Repo.GetAcceptedJobTx(ctx, tx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound("accepted job", jobID, err)
		}
		return err
	}
	if job.Status == status {
		return nil
	}
	job.Status = status
	job.UpdatedAt = now
	return e.Repo.UpdateAcceptedJobTx(ctx, tx, job)
}
