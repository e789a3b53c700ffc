package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/config"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/events"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

// Engine owns the equity accounting and legal-document lifecycle logic. Each
// operation is one user intent executed as a single ledger transaction
// covering all of its cascading writes.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// InitProject creates a project with its equity pool fixed at creation time
// and seeds its document config.
func (e Engine) InitProject(ctx context.Context, id, title string, equityAllocation float64, description, actorID string) (domain.Project, error) {
	if id == "" {
		return domain.Project{}, errInvalidInput("project id is required")
	}
	if equityAllocation < 0 {
		return domain.Project{}, errInvalidInput("equity allocation must be non-negative, got %v", equityAllocation)
	}
	now := e.timestamp()
	p := domain.Project{
		ID:               id,
		Title:            title,
		Status:           "active",
		Description:      description,
		EquityAllocation: equityAllocation,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertProjectTx(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	cfg := e.Config
	if cfg == nil {
		cfg = config.Default(id)
	}
	if err := e.Repo.UpsertProjectConfigTx(ctx, tx, id, cfg); err != nil {
		return domain.Project{}, err
	}
	if err := e.Events.Append(ctx, tx, "project.init", p.ID, "project", p.ID, actorID, events.EventPayload{
		"equity_allocation": p.EquityAllocation,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// TaskCreateOptions are parameters for creating a task. EquityAllocation is
// committed against the project pool only when the task is approved.
type TaskCreateOptions struct {
	ID               string
	ProjectID        string
	Title            string
	Description      string
	EquityAllocation float64
	EstimatedHours   float64
	ActorID          string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, errInvalidInput("title is required")
	}
	if opts.ProjectID == "" {
		return domain.Task{}, errInvalidInput("project is required")
	}
	if opts.EquityAllocation < 0 {
		return domain.Task{}, errInvalidInput("equity allocation must be non-negative, got %v", opts.EquityAllocation)
	}
	if opts.EstimatedHours < 0 {
		return domain.Task{}, errInvalidInput("estimated hours must be non-negative, got %v", opts.EstimatedHours)
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Task{}, errNotFound("project", opts.ProjectID, err)
		}
		return domain.Task{}, err
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.timestamp()
	t := domain.Task{
		ID:               id,
		ProjectID:        opts.ProjectID,
		Title:            opts.Title,
		Description:      opts.Description,
		EquityAllocation: opts.EquityAllocation,
		Status:           domain.TaskOpen,
		EstimatedHours:   optionalFloat(opts.EstimatedHours),
		LastActivityAt:   now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTaskTx(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", t.ProjectID, "task", t.ID, opts.ActorID, events.EventPayload{
		"title":             t.Title,
		"equity_allocation": t.EquityAllocation,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// --- helpers ---

func optionalFloat(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
