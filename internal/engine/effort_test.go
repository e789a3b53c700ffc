package engine_test

import (
	"testing"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/engine"
)

func TestLogEffortDerivesCompletion(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Estimated work", 10, 10)

	res, err := env.Engine.LogEffort(env.Ctx, task.ID, "dev", 4, "first batch")
	if err != nil {
		t.Fatalf("log effort: %v", err)
	}
	if res.HoursLogged != 4 || res.CompletionPercentage != 40 {
		t.Fatalf("after 4h: %+v", res)
	}
	if res.Status != domain.TaskOpen {
		t.Fatalf("status should not change below 100%%: %s", res.Status)
	}

	res, err = env.Engine.LogEffort(env.Ctx, task.ID, "dev", 6, "rest")
	if err != nil {
		t.Fatalf("log effort: %v", err)
	}
	if res.HoursLogged != 10 || res.CompletionPercentage != 100 {
		t.Fatalf("after 10h: %+v", res)
	}
	if res.Status != domain.TaskReview {
		t.Fatalf("full completion should park the task in review, got %s", res.Status)
	}
	// the only task carries all the equity weight
	if res.ProjectCompletion != 100 {
		t.Fatalf("project completion = %d, want 100", res.ProjectCompletion)
	}
}

func TestLogEffortCapsAtHundred(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Overrun", 2, 10)
	res, err := env.Engine.LogEffort(env.Ctx, task.ID, "dev", 25, "went long")
	if err != nil {
		t.Fatal(err)
	}
	if res.CompletionPercentage != 100 {
		t.Fatalf("completion = %d, want capped 100", res.CompletionPercentage)
	}
	if res.HoursLogged != 25 {
		t.Fatalf("hours must keep accumulating past the estimate: %v", res.HoursLogged)
	}
}

func TestLogEffortWithoutEstimate(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Unestimated", 2, 0)
	res, err := env.Engine.LogEffort(env.Ctx, task.ID, "dev", 8, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.CompletionPercentage != 0 || res.Status != domain.TaskOpen {
		t.Fatalf("no estimate means no derived completion: %+v", res)
	}
}

func TestLogEffortRejectsNonPositiveHours(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Strict", 1, 10)
	for _, h := range []float64{0, -2} {
		if _, err := env.Engine.LogEffort(env.Ctx, task.ID, "dev", h, ""); engine.CodeOf(err) != engine.CodeInvalidInput {
			t.Fatalf("hours=%v: expected invalid_input, got %v", h, err)
		}
	}
	got, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.HoursLogged != 0 {
		t.Fatalf("rejected entries must not accumulate: %v", got.HoursLogged)
	}
}

func TestProjectCompletionIsEquityWeighted(t *testing.T) {
	env := newTestEnv(t)
	big := mustCreateTask(t, env, "Big", 10, 10)
	mustCreateTask(t, env, "Small", 5, 10)

	res, err := env.Engine.LogEffort(env.Ctx, big.ID, "dev", 10, "")
	if err != nil {
		t.Fatal(err)
	}
	// 10 of 15 equity points complete: round(66.67) = 67
	if res.ProjectCompletion != 67 {
		t.Fatalf("project completion = %d, want 67", res.ProjectCompletion)
	}
}

func TestZeroEquityTaskDoesNotWeighCompletion(t *testing.T) {
	env := newTestEnv(t)
	paid := mustCreateTask(t, env, "Paid", 10, 10)
	mustCreateTask(t, env, "Chore", 0, 10)

	res, err := env.Engine.LogEffort(env.Ctx, paid.ID, "dev", 10, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.ProjectCompletion != 100 {
		t.Fatalf("zero-equity task dragged completion to %d", res.ProjectCompletion)
	}
}

func TestRecomputeProjectCompletionIdempotent(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Work", 4, 10)
	if _, err := env.Engine.LogEffort(env.Ctx, task.ID, "dev", 5, ""); err != nil {
		t.Fatal(err)
	}
	first, err := env.Engine.RecomputeProjectCompletion(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.Engine.RecomputeProjectCompletion(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if first != second || first != 50 {
		t.Fatalf("recompute drifted: %d then %d, want 50", first, second)
	}
}

func TestApproveTaskCommitsEquity(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Pay me", 8, 10)
	if _, err := env.Engine.SetTaskStatus(env.Ctx, task.ID, domain.TaskInProgress, "dev"); err != nil {
		t.Fatal(err)
	}

	res, err := env.Engine.ApproveTask(env.Ctx, task.ID, "founder")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.AlreadyApproved {
		t.Fatal("first approval flagged as already approved")
	}
	if res.Task.Status != domain.TaskApproved || res.Task.CompletionPercentage != 100 {
		t.Fatalf("approved task: %+v", res.Task)
	}
	if res.Task.EquityEarned == nil || *res.Task.EquityEarned != 8 {
		t.Fatalf("equity earned: %v", res.Task.EquityEarned)
	}
	if res.ProjectEquityAllocated != 8 {
		t.Fatalf("project allocated = %v, want 8", res.ProjectEquityAllocated)
	}

	// approval is idempotent: a retry reports the fact and changes nothing
	again, err := env.Engine.ApproveTask(env.Ctx, task.ID, "founder")
	if err != nil {
		t.Fatalf("retry approve: %v", err)
	}
	if !again.AlreadyApproved || again.ProjectEquityAllocated != 8 {
		t.Fatalf("retry: %+v", again)
	}
}

func TestApproveTaskEnforcesPoolCeiling(t *testing.T) {
	env := newTestEnv(t)
	first := mustCreateTask(t, env, "Large stake", 15, 10)
	second := mustCreateTask(t, env, "Over the top", 6, 10)
	for _, id := range []string{first.ID, second.ID} {
		if _, err := env.Engine.SetTaskStatus(env.Ctx, id, domain.TaskInProgress, "dev"); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := env.Engine.ApproveTask(env.Ctx, first.ID, "founder"); err != nil {
		t.Fatalf("first approval within the 20%% pool: %v", err)
	}
	_, err := env.Engine.ApproveTask(env.Ctx, second.ID, "founder")
	if engine.CodeOf(err) != engine.CodeAllocationExceeded {
		t.Fatalf("expected allocation_exceeded, got %v", err)
	}

	// rejection must leave every record untouched
	p, err := env.Engine.Repo.GetProject(env.Ctx, "proj-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.EquityAllocated != 15 {
		t.Fatalf("allocated = %v after rejected approval, want 15", p.EquityAllocated)
	}
	got, err := env.Engine.Repo.GetTask(env.Ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.TaskInProgress || got.EquityEarned != nil {
		t.Fatalf("rejected task mutated: %+v", got)
	}
}

func TestApproveTaskRequiresActiveStatus(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Still open", 2, 10)
	if _, err := env.Engine.ApproveTask(env.Ctx, task.ID, "founder"); engine.CodeOf(err) != engine.CodeInvalidTransition {
		t.Fatalf("expected invalid_transition from open, got %v", err)
	}
}

func TestApprovalCascadesIntoAcceptedJob(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Contracted work", 5, 10)
	app, err := env.Engine.CreateApplication(env.Ctx, engine.ApplicationCreateOptions{
		TaskID:      task.ID,
		ApplicantID: "alice",
		ActorID:     "alice",
	})
	if err != nil {
		t.Fatal(err)
	}
	job, err := env.Engine.AcceptApplication(env.Ctx, app.ID, "founder")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.AcceptedJobActive {
		t.Fatalf("new job status: %s", job.Status)
	}

	// effort to 100% mirrors review onto the job
	if _, err := env.Engine.LogEffort(env.Ctx, task.ID, "alice", 10, ""); err != nil {
		t.Fatal(err)
	}
	job, err = env.Engine.Repo.GetAcceptedJob(env.Ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.AcceptedJobReview {
		t.Fatalf("job status after full effort: %s", job.Status)
	}

	if _, err := env.Engine.ApproveTask(env.Ctx, task.ID, "founder"); err != nil {
		t.Fatal(err)
	}
	job, err = env.Engine.Repo.GetAcceptedJob(env.Ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != domain.AcceptedJobDone {
		t.Fatalf("job status after approval: %s", job.Status)
	}
	if job.EquityAgreed == nil || *job.EquityAgreed != 5 {
		t.Fatalf("equity agreed: %v", job.EquityAgreed)
	}
	if len(job.Notes) == 0 || job.Notes[len(job.Notes)-1].Equity != 5 {
		t.Fatalf("approval note missing: %+v", job.Notes)
	}
	app, err = env.Engine.Repo.GetApplication(env.Ctx, app.ID)
	if err != nil {
		t.Fatal(err)
	}
	if app.Status != domain.ApplicationCompleted {
		t.Fatalf("application status after approval: %s", app.Status)
	}
}

func TestAcceptApplicationIdempotent(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "One seat", 3, 10)
	app, err := env.Engine.CreateApplication(env.Ctx, engine.ApplicationCreateOptions{
		TaskID: task.ID, ApplicantID: "bob", ActorID: "bob",
	})
	if err != nil {
		t.Fatal(err)
	}
	job, err := env.Engine.AcceptApplication(env.Ctx, app.ID, "founder")
	if err != nil {
		t.Fatal(err)
	}
	again, err := env.Engine.AcceptApplication(env.Ctx, app.ID, "founder")
	if err != nil {
		t.Fatalf("re-accept: %v", err)
	}
	if again.ID != job.ID {
		t.Fatalf("re-accept created a second job: %s vs %s", again.ID, job.ID)
	}
}
