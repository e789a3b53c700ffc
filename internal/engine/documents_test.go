package engine_test

import (
	"strings"
	"testing"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/engine"
)

type docEnv struct {
	testEnv
	Task domain.Task
	App  domain.JobApplication
	Job  domain.AcceptedJob
}

func newDocEnv(t *testing.T) docEnv {
	t.Helper()
	env := newTestEnv(t)
	task := mustCreateTask(t, env, "Contracted feature", 5, 20)
	app, err := env.Engine.CreateApplication(env.Ctx, engine.ApplicationCreateOptions{
		TaskID: task.ID, ApplicantID: "alice", ActorID: "alice",
	})
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	job, err := env.Engine.AcceptApplication(env.Ctx, app.ID, "founder")
	if err != nil {
		t.Fatalf("accept application: %v", err)
	}
	return docEnv{testEnv: env, Task: task, App: app, Job: job}
}

func TestGenerateNDA(t *testing.T) {
	env := newDocEnv(t)
	doc, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type:             domain.DocNDA,
		ApplicationID:    env.App.ID,
		CounterpartyName: "Alice Jones",
		ActorID:          "founder",
	})
	if err != nil {
		t.Fatalf("generate nda: %v", err)
	}
	if doc.Status != domain.DocDraft || doc.Version != 1 {
		t.Fatalf("new document: status=%s version=%d", doc.Status, doc.Version)
	}
	if !strings.Contains(doc.Content, "Alice Jones") || !strings.Contains(doc.Content, "Acme Ltd") {
		t.Fatalf("rendered content missing parties:\n%s", doc.Content)
	}

	// generation mirrors onto the application
	app, err := env.Engine.Repo.GetApplication(env.Ctx, env.App.ID)
	if err != nil {
		t.Fatal(err)
	}
	if app.NDADocumentID == nil || *app.NDADocumentID != doc.ID {
		t.Fatalf("nda document not mirrored: %+v", app)
	}
	if app.NDAStatus == nil || *app.NDAStatus != "draft" {
		t.Fatalf("nda status not mirrored: %+v", app)
	}

	// regeneration is idempotent per application
	again, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type: domain.DocNDA, ApplicationID: env.App.ID, ActorID: "founder",
	})
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if again.ID != doc.ID {
		t.Fatalf("regeneration minted a new document: %s vs %s", again.ID, doc.ID)
	}
}

func TestGenerateNDARequiresApplication(t *testing.T) {
	env := newDocEnv(t)
	if _, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type: domain.DocNDA, ActorID: "founder",
	}); engine.CodeOf(err) != engine.CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
	if _, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type: domain.DocNDA, ApplicationID: "ghost", ActorID: "founder",
	}); engine.CodeOf(err) != engine.CodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestAwardAgreementRequiresWorkContract(t *testing.T) {
	env := newDocEnv(t)
	_, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type:          domain.DocAwardAgreement,
		AcceptedJobID: env.Job.ID,
		ActorID:       "founder",
	})
	if engine.CodeOf(err) != engine.CodeMissingPrerequisiteDocument {
		t.Fatalf("expected missing_prerequisite_document, got %v", err)
	}
	// no half-created award row
	docs, listErr := env.Engine.Repo.ListDocuments(env.Ctx, env.Job.ID, "")
	if listErr != nil {
		t.Fatal(listErr)
	}
	if len(docs) != 0 {
		t.Fatalf("rejected generation left %d documents behind", len(docs))
	}
}

func TestWorkContractThenAward(t *testing.T) {
	env := newDocEnv(t)
	wc, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type:          domain.DocWorkContract,
		AcceptedJobID: env.Job.ID,
		ActorID:       "founder",
	})
	if err != nil {
		t.Fatalf("generate work contract: %v", err)
	}
	job, err := env.Engine.Repo.GetAcceptedJob(env.Ctx, env.Job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.WorkContractDocumentID == nil || *job.WorkContractDocumentID != wc.ID {
		t.Fatalf("work contract not mirrored: %+v", job)
	}

	award, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type:          domain.DocAwardAgreement,
		AcceptedJobID: env.Job.ID,
		ActorID:       "founder",
	})
	if err != nil {
		t.Fatalf("generate award: %v", err)
	}
	if award.Type != domain.DocAwardAgreement || award.Status != domain.DocDraft {
		t.Fatalf("award document: %+v", award)
	}
	job, err = env.Engine.Repo.GetAcceptedJob(env.Ctx, env.Job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.AwardAgreementDocumentID == nil || *job.AwardAgreementDocumentID != award.ID {
		t.Fatalf("award not mirrored: %+v", job)
	}
}

func TestDocumentStateMachine(t *testing.T) {
	env := newDocEnv(t)
	doc, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type: domain.DocWorkContract, AcceptedJobID: env.Job.ID, ActorID: "founder",
	})
	if err != nil {
		t.Fatal(err)
	}

	// draft cannot skip to final or executed
	for _, target := range []domain.DocumentStatus{domain.DocFinal, domain.DocExecuted} {
		if _, err := env.Engine.AdvanceDocumentStatus(env.Ctx, doc.ID, target, "founder"); engine.CodeOf(err) != engine.CodeInvalidTransition {
			t.Fatalf("draft -> %s: expected invalid_transition, got %v", target, err)
		}
	}

	for _, target := range []domain.DocumentStatus{domain.DocReview, domain.DocFinal, domain.DocExecuted} {
		doc, err = env.Engine.AdvanceDocumentStatus(env.Ctx, doc.ID, target, "founder")
		if err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
	}
	if doc.ExecutedAt == nil {
		t.Fatal("executed document missing executed_at")
	}
	// mirror follows every transition
	job, err := env.Engine.Repo.GetAcceptedJob(env.Ctx, env.Job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if job.WorkContractStatus == nil || *job.WorkContractStatus != "executed" {
		t.Fatalf("mirror stale: %+v", job.WorkContractStatus)
	}

	// executed cannot go back, only out
	if _, err := env.Engine.AdvanceDocumentStatus(env.Ctx, doc.ID, domain.DocReview, "founder"); engine.CodeOf(err) != engine.CodeInvalidTransition {
		t.Fatalf("executed -> review: expected invalid_transition, got %v", err)
	}
	doc, err = env.Engine.AdvanceDocumentStatus(env.Ctx, doc.ID, domain.DocAmended, "founder")
	if err != nil {
		t.Fatalf("executed -> amended: %v", err)
	}
	doc, err = env.Engine.AdvanceDocumentStatus(env.Ctx, doc.ID, domain.DocTerminated, "founder")
	if err != nil {
		t.Fatalf("amended -> terminated: %v", err)
	}
	if _, err := env.Engine.AdvanceDocumentStatus(env.Ctx, doc.ID, domain.DocAmended, "founder"); engine.CodeOf(err) != engine.CodeInvalidTransition {
		t.Fatalf("terminated is terminal, got %v", err)
	}
}

func TestSignDocument(t *testing.T) {
	env := newDocEnv(t)
	doc, err := env.Engine.GenerateDocument(env.Ctx, engine.GenerateDocumentOptions{
		Type: domain.DocWorkContract, AcceptedJobID: env.Job.ID, ActorID: "founder",
	})
	if err != nil {
		t.Fatal(err)
	}

	// drafts are not signable
	if _, err := env.Engine.SignDocument(env.Ctx, doc.ID, "alice", "signed: Alice", ""); engine.CodeOf(err) != engine.CodeNotSignable {
		t.Fatalf("expected not_signable for draft, got %v", err)
	}

	if _, err := env.Engine.AdvanceDocumentStatus(env.Ctx, doc.ID, domain.DocReview, "founder"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.SignDocument(env.Ctx, doc.ID, "alice", "", ""); engine.CodeOf(err) != engine.CodeInvalidInput {
		t.Fatalf("expected invalid_input for empty payload, got %v", err)
	}
	sig, err := env.Engine.SignDocument(env.Ctx, doc.ID, "alice", "signed: Alice", "counterparty")
	if err != nil {
		t.Fatalf("sign in review: %v", err)
	}
	if sig.Version != 1 || sig.SignerID != "alice" {
		t.Fatalf("signature: %+v", sig)
	}

	// both parties can sign the same version; signing never advances status
	if _, err := env.Engine.SignDocument(env.Ctx, doc.ID, "founder", "signed: Founder", ""); err != nil {
		t.Fatal(err)
	}
	got, err := env.Engine.Repo.GetDocument(env.Ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.DocReview {
		t.Fatalf("signing moved status to %s", got.Status)
	}
	sigs, err := env.Engine.Repo.ListSignatures(env.Ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 2 {
		t.Fatalf("signature count = %d, want 2", len(sigs))
	}
}
