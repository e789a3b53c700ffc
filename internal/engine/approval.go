package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/events"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

// equitySlack absorbs float accumulation noise when checking the ceiling.
// It is far below any meaningful equity grain (hundredths of a percent).
const equitySlack = 1e-9

// ApprovalResult reports the state after an approval intent.
type ApprovalResult struct {
	Task                   domain.Task `json:"task"`
	ProjectEquityAllocated float64     `json:"project_equity_allocated"`
	AlreadyApproved        bool        `json:"already_approved"`
}

// ApproveTask commits the task's equity allocation against the project pool
// and cascades into the accepted job, application, and note log. The cascade
// is one transaction: either every sub-update lands or none do. Approving an
// already approved or done task is a no-op, which also makes retries safe.
func (e Engine) ApproveTask(ctx context.Context, taskID, approverID string) (ApprovalResult, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return ApprovalResult{}, err
	}
	defer tx.Rollback()

	t, err := e.Repo.GetTaskTx(ctx, tx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ApprovalResult{}, errNotFound("task", taskID, err)
		}
		return ApprovalResult{}, err
	}
	p, err := e.Repo.GetProjectTx(ctx, tx, t.ProjectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ApprovalResult{}, errNotFound("project", t.ProjectID, err)
		}
		return ApprovalResult{}, err
	}

	if t.Status == domain.TaskApproved || t.Status == domain.TaskDone {
		return ApprovalResult{Task: t, ProjectEquityAllocated: p.EquityAllocated, AlreadyApproved: true}, nil
	}
	if t.Status != domain.TaskReview && t.Status != domain.TaskInProgress {
		return ApprovalResult{}, errInvalidTransition(t.ID, string(t.Status), string(domain.TaskApproved))
	}

	projected := p.EquityAllocated + t.EquityAllocation
	if projected > p.EquityAllocation+equitySlack {
		return ApprovalResult{}, &Error{
			Code:     CodeAllocationExceeded,
			EntityID: t.ID,
			Message: fmt.Sprintf("approving would allocate %.4f of a %.4f pool (already allocated %.4f)",
				projected, p.EquityAllocation, p.EquityAllocated),
		}
	}

	now := e.timestamp()
	earned := t.EquityAllocation
	t.Status = domain.TaskApproved
	t.CompletionPercentage = 100
	t.EquityEarned = &earned
	t.ApprovedAt = &now
	t.LastActivityAt = now
	t.UpdatedAt = now
	if err := e.Repo.UpdateTaskTx(ctx, tx, t); err != nil {
		return ApprovalResult{}, errApprovalStep(t.ID, "task", err)
	}
	if err := e.Repo.UpdateProjectEquityAllocatedTx(ctx, tx, p.ID, projected, now); err != nil {
		return ApprovalResult{}, errApprovalStep(t.ID, "project", err)
	}
	if _, err := e.recomputeProjectCompletionTx(ctx, tx, p.ID, now); err != nil {
		return ApprovalResult{}, errApprovalStep(t.ID, "project_completion", err)
	}

	if t.AcceptedJobID != nil {
		job, err := e.Repo.GetAcceptedJobTx(ctx, tx, *t.AcceptedJobID)
		if err != nil {
			return ApprovalResult{}, errApprovalStep(t.ID, "accepted_job", err)
		}
		job.EquityAgreed = &earned
		job.AgreementDate = &now
		job.Status = domain.AcceptedJobDone
		job.Notes = append(job.Notes, domain.Note{
			ActorID: approverID,
			TS:      now,
			Text:    "task approved, equity granted",
			Equity:  earned,
		})
		job.UpdatedAt = now
		if err := e.Repo.UpdateAcceptedJobTx(ctx, tx, job); err != nil {
			return ApprovalResult{}, errApprovalStep(t.ID, "accepted_job", err)
		}
		if err := e.Repo.UpdateApplicationStatusTx(ctx, tx, job.ApplicationID, domain.ApplicationCompleted, now); err != nil {
			return ApprovalResult{}, errApprovalStep(t.ID, "application", err)
		}
	}

	if err := e.Events.Append(ctx, tx, "task.approved", p.ID, "task", t.ID, approverID, events.EventPayload{
		"equity_earned":    earned,
		"equity_allocated": projected,
	}); err != nil {
		return ApprovalResult{}, errApprovalStep(t.ID, "event", err)
	}
	if err := tx.Commit(); err != nil {
		return ApprovalResult{}, errApprovalStep(t.ID, "commit", err)
	}
	return ApprovalResult{Task: t, ProjectEquityAllocated: projected}, nil
}
