package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/config"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/db"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/engine"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/migrate"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

// newTestEnv opens a fresh ledger with a single project holding a 20% pool.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("proj-1")
	cfg.Business.Name = "Acme Ltd"
	eng := engine.New(conn, cfg)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	if _, err := eng.InitProject(ctx, "proj-1", "Marketplace MVP", 20, "", "founder"); err != nil {
		t.Fatalf("init project: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func mustCreateTask(t *testing.T, env testEnv, title string, equity, estHours float64) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID:        "proj-1",
		Title:            title,
		EquityAllocation: equity,
		EstimatedHours:   estHours,
		ActorID:          "founder",
	})
	if err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	return task
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{ProjectID: "proj-1", ActorID: "founder"}); err == nil {
		t.Fatal("expected error for missing title")
	}
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: "proj-1", Title: "x", EquityAllocation: -1, ActorID: "founder",
	}); engine.CodeOf(err) != engine.CodeInvalidInput {
		t.Fatalf("expected invalid_input for negative equity, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ProjectID: "nope", Title: "x", ActorID: "founder",
	}); engine.CodeOf(err) != engine.CodeNotFound {
		t.Fatalf("expected not_found for missing project, got %v", err)
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Do work", 2, 10)

	task, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskInProgress, "dev")
	if err != nil || task.Status != domain.TaskInProgress {
		t.Fatalf("to in_progress: %v", err)
	}
	task, err = env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskReview, "dev")
	if err != nil || task.Status != domain.TaskReview {
		t.Fatalf("to review: %v", err)
	}
	// review cannot jump straight to done
	if _, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskDone, "dev"); engine.CodeOf(err) != engine.CodeInvalidTransition {
		t.Fatalf("expected invalid_transition, got %v", err)
	}
	// approved is reserved for the approval path
	if _, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskApproved, "dev"); engine.CodeOf(err) != engine.CodeInvalidTransition {
		t.Fatalf("expected invalid_transition for manual approved, got %v", err)
	}
	// same-status move is a no-op
	if _, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskReview, "dev"); err != nil {
		t.Fatalf("same status should be a no-op: %v", err)
	}
	// blocked detour and back
	if _, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskBlocked, "dev"); err != nil {
		t.Fatalf("to blocked: %v", err)
	}
	if _, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskInProgress, "dev"); err != nil {
		t.Fatalf("blocked back to in_progress: %v", err)
	}
}

func TestManualStatusMoveLeavesEquityAlone(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Do work", 5, 10)
	task, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskInProgress, "dev")
	if err != nil {
		t.Fatal(err)
	}
	if task.CompletionPercentage != 0 || task.EquityEarned != nil {
		t.Fatalf("manual move touched derived fields: %+v", task)
	}
	p, err := env.Engine.Repo.GetProject(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.EquityAllocated != 0 {
		t.Fatalf("equity_allocated changed by status move: %v", p.EquityAllocated)
	}
}

func TestSoftDeleteGuard(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Throwaway", 1, 10)

	ok, reason, err := env.Engine.CanDeleteTask(env.Ctx, task.ID)
	if err != nil || !ok || reason != "" {
		t.Fatalf("fresh task should be deletable: ok=%v reason=%q err=%v", ok, reason, err)
	}

	if _, err := env.Engine.LogEffort(env.Ctx, task.ID, "dev", 1, "spike"); err != nil {
		t.Fatalf("log effort: %v", err)
	}
	ok, reason, err = env.Engine.CanDeleteTask(env.Ctx, task.ID)
	if err != nil || ok {
		t.Fatalf("task with logged time must not be deletable: %v", err)
	}
	if reason != engine.BlockedHasLoggedTime {
		t.Fatalf("reason = %q, want %q", reason, engine.BlockedHasLoggedTime)
	}
	if err := env.Engine.SoftDeleteTask(env.Ctx, task.ID, "founder"); engine.CodeOf(err) != engine.CodeDeletionBlocked {
		t.Fatalf("expected deletion_blocked, got %v", err)
	}
	// blocked delete leaves the live row in place
	if _, err := env.Engine.Repo.GetTask(env.Ctx, task.ID); err != nil {
		t.Fatalf("task should survive blocked delete: %v", err)
	}
}

func TestSoftDeleteArchives(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Abandoned", 2, 0)

	if err := env.Engine.SoftDeleteTask(env.Ctx, task.ID, "founder"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := env.Engine.Repo.GetTask(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("live row should be gone, got %v", err)
	}
	archived, err := env.Engine.Repo.GetArchivedTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("archived copy missing: %v", err)
	}
	if archived.Title != "Abandoned" || archived.DeletedBy != "founder" {
		t.Fatalf("archive mismatch: %+v", archived)
	}
}

func TestEventsRecorded(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Tracked", 2, 10)
	if _, err := env.Engine.LogEffort(env.Ctx, task.ID, "dev", 3, "work"); err != nil {
		t.Fatal(err)
	}
	events, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "proj-1", "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	types := map[string]bool{}
	for _, ev := range events {
		types[ev.Type] = true
	}
	for _, want := range []string{"project.init", "task.created", "effort.logged"} {
		if !types[want] {
			t.Fatalf("missing event %q in %v", want, types)
		}
	}
}
