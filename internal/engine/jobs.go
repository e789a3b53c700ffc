package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/events"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

// ApplicationCreateOptions are parameters for a candidate applying to a task.
type ApplicationCreateOptions struct {
	ID          string
	TaskID      string
	ApplicantID string
	ActorID     string
}

func (e Engine) CreateApplication(ctx context.Context, opts ApplicationCreateOptions) (domain.JobApplication, error) {
	if opts.TaskID == "" {
		return domain.JobApplication{}, errInvalidInput("task is required")
	}
	if opts.ApplicantID == "" {
		return domain.JobApplication{}, errInvalidInput("applicant is required")
	}
	t, err := e.Repo.GetTask(ctx, opts.TaskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.JobApplication{}, errNotFound("task", opts.TaskID, err)
		}
		return domain.JobApplication{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.timestamp()
	a := domain.JobApplication{
		ID:          id,
		TaskID:      t.ID,
		ApplicantID: opts.ApplicantID,
		Status:      domain.ApplicationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.JobApplication{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertApplicationTx(ctx, tx, a); err != nil {
		return domain.JobApplication{}, err
	}
	if err := e.Events.Append(ctx, tx, "application.created", t.ProjectID, "application", a.ID, opts.ActorID, events.EventPayload{
		"task_id":      t.ID,
		"applicant_id": a.ApplicantID,
	}); err != nil {
		return domain.JobApplication{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.JobApplication{}, err
	}
	return a, nil
}

// AcceptApplication finalizes the match: the application flips to accepted,
// an accepted job is created as the anchor for contract documents, and the
// task is linked to it. Re-accepting returns the existing job.
func (e Engine) AcceptApplication(ctx context.Context, applicationID, actorID string) (domain.AcceptedJob, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.AcceptedJob{}, err
	}
	defer tx.Rollback()

	a, err := e.Repo.GetApplicationTx(ctx, tx, applicationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.AcceptedJob{}, errNotFound("application", applicationID, err)
		}
		return domain.AcceptedJob{}, err
	}
	if a.Status == domain.ApplicationAccepted || a.Status == domain.ApplicationCompleted {
		job, err := e.Repo.GetAcceptedJobByApplicationTx(ctx, tx, a.ID)
		if err != nil {
			return domain.AcceptedJob{}, err
		}
		return job, nil
	}
	if a.Status != domain.ApplicationPending {
		return domain.AcceptedJob{}, errInvalidTransition(a.ID, a.Status, domain.ApplicationAccepted)
	}
	t, err := e.Repo.GetTaskTx(ctx, tx, a.TaskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.AcceptedJob{}, errNotFound("task", a.TaskID, err)
		}
		return domain.AcceptedJob{}, err
	}

	now := e.timestamp()
	job := domain.AcceptedJob{
		ID:            uuid.New().String(),
		ApplicationID: a.ID,
		TaskID:        t.ID,
		Status:        domain.AcceptedJobActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.InsertAcceptedJobTx(ctx, tx, job); err != nil {
		return domain.AcceptedJob{}, err
	}
	if err := e.Repo.UpdateApplicationStatusTx(ctx, tx, a.ID, domain.ApplicationAccepted, now); err != nil {
		return domain.AcceptedJob{}, err
	}
	t.AcceptedJobID = &job.ID
	t.UpdatedAt = now
	if err := e.Repo.UpdateTaskTx(ctx, tx, t); err != nil {
		return domain.AcceptedJob{}, err
	}
	if err := e.Events.Append(ctx, tx, "application.accepted", t.ProjectID, "application", a.ID, actorID, events.EventPayload{
		"accepted_job_id": job.ID,
		"task_id":         t.ID,
	}); err != nil {
		return domain.AcceptedJob{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.AcceptedJob{}, err
	}
	return job, nil
}
