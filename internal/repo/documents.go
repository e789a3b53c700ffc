package repo

import (
	"context"
	"database/sql"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
)

// --- legal documents ---

const documentCols = `id,document_type,status,COALESCE(business_id,''),COALESCE(counterparty_id,''),project_id,application_id,accepted_job_id,version,COALESCE(content,''),executed_at,created_at,updated_at`

func scanDocument(scan func(dest ...any) error) (domain.LegalDocument, error) {
	var d domain.LegalDocument
	var docType, status string
	var projectID, applicationID, acceptedJobID, executedAt sql.NullString
	err := scan(&d.ID, &docType, &status, &d.BusinessID, &d.CounterpartyID, &projectID, &applicationID, &acceptedJobID,
		&d.Version, &d.Content, &executedAt, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.Type = domain.DocumentType(docType)
	d.Status = domain.DocumentStatus(status)
	if projectID.Valid {
		d.ProjectID = &projectID.String
	}
	if applicationID.Valid {
		d.ApplicationID = &applicationID.String
	}
	if acceptedJobID.Valid {
		d.AcceptedJobID = &acceptedJobID.String
	}
	if executedAt.Valid {
		d.ExecutedAt = &executedAt.String
	}
	return d, nil
}

func (r Repo) InsertDocumentTx(ctx context.Context, tx *sql.Tx, d domain.LegalDocument) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO legal_documents(id,document_type,status,business_id,counterparty_id,project_id,application_id,accepted_job_id,version,content,executed_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, string(d.Type), string(d.Status), nullable(d.BusinessID), nullable(d.CounterpartyID),
		nullableStringPtr(d.ProjectID), nullableStringPtr(d.ApplicationID), nullableStringPtr(d.AcceptedJobID),
		d.Version, nullable(d.Content), nullableStringPtr(d.ExecutedAt), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) GetDocument(ctx context.Context, id string) (domain.LegalDocument, error) {
	return r.getDocument(ctx, r.DB, id)
}

func (r Repo) GetDocumentTx(ctx context.Context, tx *sql.Tx, id string) (domain.LegalDocument, error) {
	return r.getDocument(ctx, tx, id)
}

func (r Repo) getDocument(ctx context.Context, q querier, id string) (domain.LegalDocument, error) {
	row := q.QueryRowContext(ctx, `SELECT `+documentCols+` FROM legal_documents WHERE id=?`, id)
	return scanDocument(row.Scan)
}

// FindDocumentByApplication finds a document of the given type owned by an
// application (NDA ownership).
func (r Repo) FindDocumentByApplication(ctx context.Context, docType domain.DocumentType, applicationID string) (domain.LegalDocument, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+documentCols+` FROM legal_documents WHERE document_type=? AND application_id=? LIMIT 1`, string(docType), applicationID)
	return scanDocument(row.Scan)
}

// FindDocumentByAcceptedJob finds a document of the given type owned by an
// accepted job (work contract / award agreement ownership).
func (r Repo) FindDocumentByAcceptedJob(ctx context.Context, docType domain.DocumentType, acceptedJobID string) (domain.LegalDocument, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+documentCols+` FROM legal_documents WHERE document_type=? AND accepted_job_id=? LIMIT 1`, string(docType), acceptedJobID)
	return scanDocument(row.Scan)
}

func (r Repo) UpdateDocumentStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.DocumentStatus, executedAt *string, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE legal_documents SET status=?, executed_at=COALESCE(?,executed_at), updated_at=? WHERE id=?`,
		string(status), nullableStringPtr(executedAt), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListDocuments(ctx context.Context, acceptedJobID, applicationID string) ([]domain.LegalDocument, error) {
	query := `SELECT ` + documentCols + ` FROM legal_documents`
	var args []any
	switch {
	case acceptedJobID != "":
		query += ` WHERE accepted_job_id=?`
		args = append(args, acceptedJobID)
	case applicationID != "":
		query += ` WHERE application_id=?`
		args = append(args, applicationID)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.LegalDocument
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// --- signatures ---

func (r Repo) InsertSignatureTx(ctx context.Context, tx *sql.Tx, s domain.Signature) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO signatures(id,document_id,signer_id,payload,remarks,version,created_at) VALUES (?,?,?,?,?,?,?)`,
		s.ID, s.DocumentID, s.SignerID, s.Payload, nullable(s.Remarks), s.Version, s.CreatedAt)
	return err
}

func (r Repo) ListSignatures(ctx context.Context, documentID string) ([]domain.Signature, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,document_id,signer_id,payload,COALESCE(remarks,''),version,created_at FROM signatures WHERE document_id=? ORDER BY created_at ASC, id ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Signature
	for rows.Next() {
		var s domain.Signature
		if err := rows.Scan(&s.ID, &s.DocumentID, &s.SignerID, &s.Payload, &s.Remarks, &s.Version, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// --- archived tasks ---

func (r Repo) InsertArchivedTaskTx(ctx context.Context, tx *sql.Tx, a domain.ArchivedTask) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO archived_tasks(id,project_id,title,description,equity_allocation,status,completion_percentage,estimated_hours,hours_logged,created_at,deleted_by,deleted_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.ProjectID, a.Title, nullable(a.Description), a.EquityAllocation, a.Status, a.CompletionPercentage,
		nullableFloatPtr(a.EstimatedHours), a.HoursLogged, a.CreatedAt, a.DeletedBy, a.DeletedAt)
	return err
}

func (r Repo) GetArchivedTask(ctx context.Context, id string) (domain.ArchivedTask, error) {
	var a domain.ArchivedTask
	var description sql.NullString
	var estimatedHours sql.NullFloat64
	err := r.DB.QueryRowContext(ctx, `SELECT id,project_id,title,description,equity_allocation,status,completion_percentage,estimated_hours,hours_logged,created_at,deleted_by,deleted_at FROM archived_tasks WHERE id=?`, id).
		Scan(&a.ID, &a.ProjectID, &a.Title, &description, &a.EquityAllocation, &a.Status, &a.CompletionPercentage, &estimatedHours, &a.HoursLogged, &a.CreatedAt, &a.DeletedBy, &a.DeletedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if description.Valid {
		a.Description = description.String
	}
	if estimatedHours.Valid {
		a.EstimatedHours = &estimatedHours.Float64
	}
	return a, nil
}
