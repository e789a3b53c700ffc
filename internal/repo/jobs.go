package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
)

// --- job applications ---

const applicationCols = `id,task_id,applicant_id,status,nda_document_id,nda_status,created_at,updated_at`

func scanApplication(scan func(dest ...any) error) (domain.JobApplication, error) {
	var a domain.JobApplication
	var ndaDocID, ndaStatus sql.NullString
	err := scan(&a.ID, &a.TaskID, &a.ApplicantID, &a.Status, &ndaDocID, &ndaStatus, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if ndaDocID.Valid {
		a.NDADocumentID = &ndaDocID.String
	}
	if ndaStatus.Valid {
		a.NDAStatus = &ndaStatus.String
	}
	return a, nil
}

func (r Repo) InsertApplicationTx(ctx context.Context, tx *sql.Tx, a domain.JobApplication) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO job_applications(id,task_id,applicant_id,status,nda_document_id,nda_status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.TaskID, a.ApplicantID, a.Status, nullableStringPtr(a.NDADocumentID), nullableStringPtr(a.NDAStatus), a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetApplication(ctx context.Context, id string) (domain.JobApplication, error) {
	return r.getApplication(ctx, r.DB, id)
}

func (r Repo) GetApplicationTx(ctx context.Context, tx *sql.Tx, id string) (domain.JobApplication, error) {
	return r.getApplication(ctx, tx, id)
}

func (r Repo) getApplication(ctx context.Context, q querier, id string) (domain.JobApplication, error) {
	row := q.QueryRowContext(ctx, `SELECT `+applicationCols+` FROM job_applications WHERE id=?`, id)
	return scanApplication(row.Scan)
}

func (r Repo) UpdateApplicationStatusTx(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE job_applications SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateApplicationNDATx mirrors the linked NDA document id and status onto
// the application row.
func (r Repo) UpdateApplicationNDATx(ctx context.Context, tx *sql.Tx, id, documentID, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE job_applications SET nda_document_id=?, nda_status=?, updated_at=? WHERE id=?`, documentID, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListApplications(ctx context.Context, taskID string) ([]domain.JobApplication, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+applicationCols+` FROM job_applications WHERE task_id=? ORDER BY created_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.JobApplication
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// --- accepted jobs ---

const acceptedJobCols = `id,application_id,task_id,status,equity_agreed,agreement_date,work_contract_document_id,work_contract_status,award_agreement_document_id,award_agreement_status,notes_json,created_at,updated_at`

func scanAcceptedJob(scan func(dest ...any) error) (domain.AcceptedJob, error) {
	var j domain.AcceptedJob
	var equityAgreed sql.NullFloat64
	var agreementDate, wcDocID, wcStatus, aaDocID, aaStatus, notesJSON sql.NullString
	err := scan(&j.ID, &j.ApplicationID, &j.TaskID, &j.Status, &equityAgreed, &agreementDate,
		&wcDocID, &wcStatus, &aaDocID, &aaStatus, &notesJSON, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return j, ErrNotFound
	}
	if err != nil {
		return j, err
	}
	if equityAgreed.Valid {
		j.EquityAgreed = &equityAgreed.Float64
	}
	if agreementDate.Valid {
		j.AgreementDate = &agreementDate.String
	}
	if wcDocID.Valid {
		j.WorkContractDocumentID = &wcDocID.String
	}
	if wcStatus.Valid {
		j.WorkContractStatus = &wcStatus.String
	}
	if aaDocID.Valid {
		j.AwardAgreementDocumentID = &aaDocID.String
	}
	if aaStatus.Valid {
		j.AwardAgreementStatus = &aaStatus.String
	}
	if notesJSON.Valid && notesJSON.String != "" {
		if err := json.Unmarshal([]byte(notesJSON.String), &j.Notes); err != nil {
			return j, fmt.Errorf("decode notes for accepted job %s: %w", j.ID, err)
		}
	}
	return j, nil
}

func (r Repo) InsertAcceptedJobTx(ctx context.Context, tx *sql.Tx, j domain.AcceptedJob) error {
	notes, err := marshalNotes(j.Notes)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO accepted_jobs(id,application_id,task_id,status,equity_agreed,agreement_date,work_contract_document_id,work_contract_status,award_agreement_document_id,award_agreement_status,notes_json,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		j.ID, j.ApplicationID, j.TaskID, j.Status, nullableFloatPtr(j.EquityAgreed), nullableStringPtr(j.AgreementDate),
		nullableStringPtr(j.WorkContractDocumentID), nullableStringPtr(j.WorkContractStatus),
		nullableStringPtr(j.AwardAgreementDocumentID), nullableStringPtr(j.AwardAgreementStatus),
		notes, j.CreatedAt, j.UpdatedAt)
	return err
}

func (r Repo) UpdateAcceptedJobTx(ctx context.Context, tx *sql.Tx, j domain.AcceptedJob) error {
	notes, err := marshalNotes(j.Notes)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE accepted_jobs SET status=?, equity_agreed=?, agreement_date=?, work_contract_document_id=?, work_contract_status=?, award_agreement_document_id=?, award_agreement_status=?, notes_json=?, updated_at=? WHERE id=?`,
		j.Status, nullableFloatPtr(j.EquityAgreed), nullableStringPtr(j.AgreementDate),
		nullableStringPtr(j.WorkContractDocumentID), nullableStringPtr(j.WorkContractStatus),
		nullableStringPtr(j.AwardAgreementDocumentID), nullableStringPtr(j.AwardAgreementStatus),
		notes, j.UpdatedAt, j.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetAcceptedJob(ctx context.Context, id string) (domain.AcceptedJob, error) {
	return r.getAcceptedJob(ctx, r.DB, id)
}

func (r Repo) GetAcceptedJobTx(ctx context.Context, tx *sql.Tx, id string) (domain.AcceptedJob, error) {
	return r.getAcceptedJob(ctx, tx, id)
}

func (r Repo) getAcceptedJob(ctx context.Context, q querier, id string) (domain.AcceptedJob, error) {
	row := q.QueryRowContext(ctx, `SELECT `+acceptedJobCols+` FROM accepted_jobs WHERE id=?`, id)
	return scanAcceptedJob(row.Scan)
}

func (r Repo) GetAcceptedJobByApplicationTx(ctx context.Context, tx *sql.Tx, applicationID string) (domain.AcceptedJob, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+acceptedJobCols+` FROM accepted_jobs WHERE application_id=?`, applicationID)
	return scanAcceptedJob(row.Scan)
}

func marshalNotes(notes []domain.Note) (any, error) {
	if len(notes) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("encode notes: %w", err)
	}
	return string(b), nil
}
