package engine

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/config"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/events"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/templates"
)

const effectiveDateLayout = "January 2, 2006"

// documentTransitions is the document state machine. The happy path is
// monotonic; amended and terminated are administrative exits from any
// non-draft state.
var documentTransitions = map[domain.DocumentStatus][]domain.DocumentStatus{
	domain.DocDraft:      {domain.DocReview},
	domain.DocReview:     {domain.DocFinal, domain.DocAmended, domain.DocTerminated},
	domain.DocFinal:      {domain.DocExecuted, domain.DocAmended, domain.DocTerminated},
	domain.DocExecuted:   {domain.DocAmended, domain.DocTerminated},
	domain.DocAmended:    {domain.DocTerminated},
	domain.DocTerminated: {},
}

func ensureDocumentTransition(docID string, from, to domain.DocumentStatus) error {
	for _, allowed := range documentTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return errInvalidTransition(docID, string(from), string(to))
}

// GenerateDocumentOptions identify the owning records and parties for a new
// legal document. BusinessID and CounterpartyID are opaque references; names
// default from the project config when not supplied.
type GenerateDocumentOptions struct {
	Type             domain.DocumentType
	BusinessID       string
	CounterpartyID   string
	BusinessName     string
	CounterpartyName string
	ApplicationID    string
	AcceptedJobID    string
	Deliverables     string
	ActorID          string
}

// GenerateDocument renders and persists a legal document in draft, mirroring
// its id and status onto the owning record. Generation is idempotent per
// owning reference: an existing document of the requested type is returned
// untouched. An award agreement requires an existing work contract on the
// same accepted job.
func (e Engine) GenerateDocument(ctx context.Context, opts GenerateDocumentOptions) (domain.LegalDocument, error) {
	if _, err := domain.ParseDocumentType(string(opts.Type)); err != nil {
		return domain.LegalDocument{}, errInvalidInput("%v", err)
	}

	var (
		app      domain.JobApplication
		job      domain.AcceptedJob
		taskID   string
		priorWC  *domain.LegalDocument
		existing domain.LegalDocument
		err      error
	)
	switch opts.Type {
	case domain.DocNDA:
		if opts.ApplicationID == "" {
			return domain.LegalDocument{}, errInvalidInput("application is required for an nda")
		}
		app, err = e.Repo.GetApplication(ctx, opts.ApplicationID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.LegalDocument{}, errNotFound("application", opts.ApplicationID, err)
			}
			return domain.LegalDocument{}, err
		}
		taskID = app.TaskID
		existing, err = e.Repo.FindDocumentByApplication(ctx, opts.Type, app.ID)
	default:
		if opts.AcceptedJobID == "" {
			return domain.LegalDocument{}, errInvalidInput("accepted job is required for a %s", opts.Type)
		}
		job, err = e.Repo.GetAcceptedJob(ctx, opts.AcceptedJobID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return domain.LegalDocument{}, errNotFound("accepted job", opts.AcceptedJobID, err)
			}
			return domain.LegalDocument{}, err
		}
		taskID = job.TaskID
		existing, err = e.Repo.FindDocumentByAcceptedJob(ctx, opts.Type, job.ID)
	}
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.LegalDocument{}, err
	}

	if opts.Type == domain.DocAwardAgreement {
		if job.WorkContractDocumentID == nil {
			return domain.LegalDocument{}, &Error{
				Code:     CodeMissingPrerequisiteDocument,
				Message:  "award agreement requires an executed work contract on the accepted job",
				EntityID: job.ID,
			}
		}
		wc, err := e.Repo.GetDocument(ctx, *job.WorkContractDocumentID)
		if err != nil {
			return domain.LegalDocument{}, err
		}
		priorWC = &wc
	}

	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.LegalDocument{}, errNotFound("task", taskID, err)
		}
		return domain.LegalDocument{}, err
	}
	p, err := e.Repo.GetProject(ctx, t.ProjectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.LegalDocument{}, errNotFound("project", t.ProjectID, err)
		}
		return domain.LegalDocument{}, err
	}
	cfg, err := e.projectConfig(ctx, p.ID)
	if err != nil {
		return domain.LegalDocument{}, err
	}

	data := templates.Data{
		BusinessName:          opts.BusinessName,
		BusinessContact:       cfg.Business.Contact,
		CounterpartyName:      opts.CounterpartyName,
		ProjectTitle:          p.Title,
		TaskTitle:             t.Title,
		EffectiveDate:         e.now().UTC().Format(effectiveDateLayout),
		EquityPercent:         t.EquityAllocation,
		DurationMonths:        cfg.Documents.ContractDurationMonths,
		ConfidentialityMonths: cfg.Documents.ConfidentialityMonths,
		ArbitrationForum:      cfg.Documents.ArbitrationForum,
		GoverningLaw:          cfg.Documents.GoverningLaw,
		Deliverables:          opts.Deliverables,
	}
	if data.BusinessName == "" {
		data.BusinessName = cfg.Business.Name
	}
	if data.BusinessName == "" {
		data.BusinessName = opts.BusinessID
	}
	if data.CounterpartyName == "" {
		data.CounterpartyName = opts.CounterpartyID
	}
	if job.EquityAgreed != nil {
		data.EquityPercent = *job.EquityAgreed
	}
	if priorWC != nil {
		data.PriorContractDate = priorWC.CreatedAt
		if priorWC.ExecutedAt != nil {
			data.PriorContractDate = *priorWC.ExecutedAt
		}
	}
	content, err := templates.Render(opts.Type, data)
	if err != nil {
		return domain.LegalDocument{}, err
	}

	now := e.timestamp()
	doc := domain.LegalDocument{
		ID:             uuid.New().String(),
		Type:           opts.Type,
		Status:         domain.DocDraft,
		BusinessID:     opts.BusinessID,
		CounterpartyID: opts.CounterpartyID,
		ProjectID:      &p.ID,
		Version:        1,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if opts.Type == domain.DocNDA {
		doc.ApplicationID = &app.ID
	} else {
		doc.AcceptedJobID = &job.ID
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.LegalDocument{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertDocumentTx(ctx, tx, doc); err != nil {
		return domain.LegalDocument{}, err
	}
	if err := e.mirrorDocumentTx(ctx, tx, doc, now); err != nil {
		return domain.LegalDocument{}, err
	}
	if err := e.Events.Append(ctx, tx, "document.generated", p.ID, "document", doc.ID, opts.ActorID, events.EventPayload{
		"document_type": string(doc.Type),
		"status":        string(doc.Status),
	}); err != nil {
		return domain.LegalDocument{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.LegalDocument{}, err
	}
	return doc, nil
}

// AdvanceDocumentStatus moves a document forward through its state machine.
// Transition into executed stamps executed_at. Every transition is mirrored
// onto the owning record so dashboards never read a stale status.
func (e Engine) AdvanceDocumentStatus(ctx context.Context, documentID string, target domain.DocumentStatus, actorID string) (domain.LegalDocument, error) {
	if _, err := domain.ParseDocumentStatus(string(target)); err != nil {
		return domain.LegalDocument{}, errInvalidInput("%v", err)
	}
	doc, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.LegalDocument{}, errNotFound("document", documentID, err)
		}
		return domain.LegalDocument{}, err
	}
	if err := ensureDocumentTransition(doc.ID, doc.Status, target); err != nil {
		return doc, err
	}
	now := e.timestamp()
	from := doc.Status
	doc.Status = target
	doc.UpdatedAt = now
	var executedAt *string
	if target == domain.DocExecuted {
		executedAt = &now
		doc.ExecutedAt = &now
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return doc, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateDocumentStatusTx(ctx, tx, doc.ID, target, executedAt, now); err != nil {
		return doc, err
	}
	if err := e.mirrorDocumentTx(ctx, tx, doc, now); err != nil {
		return doc, err
	}
	projectID := ""
	if doc.ProjectID != nil {
		projectID = *doc.ProjectID
	}
	if err := e.Events.Append(ctx, tx, "document.status.changed", projectID, "document", doc.ID, actorID, events.EventPayload{
		"document_type": string(doc.Type),
		"from":          string(from),
		"to":            string(target),
	}); err != nil {
		return doc, err
	}
	if err := tx.Commit(); err != nil {
		return doc, err
	}
	return doc, nil
}

// SignDocument appends an immutable signature stamped with the document's
// current version. Signing never advances status: collecting N signatures
// and executing the document are separate intents.
func (e Engine) SignDocument(ctx context.Context, documentID, signerID, payload, remarks string) (domain.Signature, error) {
	if payload == "" {
		return domain.Signature{}, errInvalidInput("signature payload is required")
	}
	doc, err := e.Repo.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Signature{}, errNotFound("document", documentID, err)
		}
		return domain.Signature{}, err
	}
	if doc.Status != domain.DocReview && doc.Status != domain.DocFinal {
		return domain.Signature{}, &Error{
			Code:     CodeNotSignable,
			Message:  "document in status " + string(doc.Status) + " cannot be signed",
			EntityID: doc.ID,
		}
	}
	now := e.timestamp()
	sig := domain.Signature{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		SignerID:   signerID,
		Payload:    payload,
		Remarks:    remarks,
		Version:    doc.Version,
		CreatedAt:  now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Signature{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertSignatureTx(ctx, tx, sig); err != nil {
		return domain.Signature{}, err
	}
	projectID := ""
	if doc.ProjectID != nil {
		projectID = *doc.ProjectID
	}
	if err := e.Events.Append(ctx, tx, "document.signed", projectID, "document", doc.ID, signerID, events.EventPayload{
		"document_type": string(doc.Type),
		"version":       doc.Version,
	}); err != nil {
		return domain.Signature{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Signature{}, err
	}
	return sig, nil
}

// mirrorDocumentTx copies a document's id and status onto its owning record.
func (e Engine) mirrorDocumentTx(ctx context.Context, tx *sql.Tx, doc domain.LegalDocument, now string) error {
	switch doc.Type {
	case domain.DocNDA:
		if doc.ApplicationID == nil {
			return nil
		}
		return e.Repo.UpdateApplicationNDATx(ctx, tx, *doc.ApplicationID, doc.ID, string(doc.Status), now)
	case domain.DocWorkContract, domain.DocAwardAgreement:
		if doc.AcceptedJobID == nil {
			return nil
		}
		job, err := e.Repo.GetAcceptedJobTx(ctx, tx, *doc.AcceptedJobID)
		if err != nil {
			return err
		}
		status := string(doc.Status)
		if doc.Type == domain.DocWorkContract {
			job.WorkContractDocumentID = &doc.ID
			job.WorkContractStatus = &status
		} else {
			job.AwardAgreementDocumentID = &doc.ID
			job.AwardAgreementStatus = &status
		}
		job.UpdatedAt = now
		return e.Repo.UpdateAcceptedJobTx(ctx, tx, job)
	}
	return nil
}

// projectConfig prefers the config stored with the project, falling back to
// the engine-level config and finally to defaults.
func (e Engine) projectConfig(ctx context.Context, projectID string) (*config.Config, error) {
	cfg, err := e.Repo.GetProjectConfig(ctx, projectID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if e.Config != nil {
		return e.Config, nil
	}
	return config.Default(projectID), nil
}
