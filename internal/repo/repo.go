package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/config"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier is satisfied by both *sql.DB and *sql.Tx so single-row reads can
// run inside or outside a transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// --- projects ---

const projectCols = `id,title,status,COALESCE(description,''),equity_allocation,equity_allocated,completion_percentage,created_at,updated_at`

func scanProject(row *sql.Row) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(&p.ID, &p.Title, &p.Status, &p.Description, &p.EquityAllocation, &p.EquityAllocated, &p.CompletionPercentage, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

func (r Repo) InsertProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(id,title,status,description,equity_allocation,equity_allocated,completion_percentage,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Title, p.Status, nullable(p.Description), p.EquityAllocation, p.EquityAllocated, p.CompletionPercentage, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id=?`, id))
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	return scanProject(tx.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE id=?`, id))
}

func (r Repo) SingleProject(ctx context.Context) (domain.Project, error) {
	projects, err := r.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	if len(projects) == 0 {
		return domain.Project{}, ErrNotFound
	}
	if len(projects) > 1 {
		return domain.Project{}, fmt.Errorf("multiple projects exist; specify --project")
	}
	return projects[0], nil
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectCols+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Title, &p.Status, &p.Description, &p.EquityAllocation, &p.EquityAllocated, &p.CompletionPercentage, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// UpdateProjectEquityAllocatedTx bumps the committed equity counter. Only the
// approval path calls this.
func (r Repo) UpdateProjectEquityAllocatedTx(ctx context.Context, tx *sql.Tx, id string, allocated float64, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET equity_allocated=?, updated_at=? WHERE id=?`, allocated, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpdateProjectCompletionTx(ctx context.Context, tx *sql.Tx, id string, completion int, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE projects SET completion_percentage=?, updated_at=? WHERE id=?`, completion, updatedAt, id)
	return err
}

// --- tasks ---

const taskCols = `id,project_id,accepted_job_id,title,description,equity_allocation,status,completion_percentage,estimated_hours,hours_logged,equity_earned,approved_at,last_activity_at,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var acceptedJobID, description, approvedAt sql.NullString
	var estimatedHours, equityEarned sql.NullFloat64
	var status string
	err := scan(&t.ID, &t.ProjectID, &acceptedJobID, &t.Title, &description, &t.EquityAllocation, &status, &t.CompletionPercentage,
		&estimatedHours, &t.HoursLogged, &equityEarned, &approvedAt, &t.LastActivityAt, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Status = domain.TaskStatus(status)
	if acceptedJobID.Valid {
		t.AcceptedJobID = &acceptedJobID.String
	}
	if description.Valid {
		t.Description = description.String
	}
	if estimatedHours.Valid {
		t.EstimatedHours = &estimatedHours.Float64
	}
	if equityEarned.Valid {
		t.EquityEarned = &equityEarned.Float64
	}
	if approvedAt.Valid {
		t.ApprovedAt = &approvedAt.String
	}
	return t, nil
}

func (r Repo) InsertTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id,project_id,accepted_job_id,title,description,equity_allocation,status,completion_percentage,estimated_hours,hours_logged,equity_earned,approved_at,last_activity_at,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, nullableStringPtr(t.AcceptedJobID), t.Title, nullable(t.Description), t.EquityAllocation, string(t.Status), t.CompletionPercentage,
		nullableFloatPtr(t.EstimatedHours), t.HoursLogged, nullableFloatPtr(t.EquityEarned), nullableStringPtr(t.ApprovedAt), t.LastActivityAt, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) UpdateTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET accepted_job_id=?, title=?, description=?, equity_allocation=?, status=?, completion_percentage=?, estimated_hours=?, hours_logged=?, equity_earned=?, approved_at=?, last_activity_at=?, updated_at=? WHERE id=?`,
		nullableStringPtr(t.AcceptedJobID), t.Title, nullable(t.Description), t.EquityAllocation, string(t.Status), t.CompletionPercentage,
		nullableFloatPtr(t.EstimatedHours), t.HoursLogged, nullableFloatPtr(t.EquityEarned), nullableStringPtr(t.ApprovedAt), t.LastActivityAt, t.UpdatedAt, t.ID)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return r.getTask(ctx, r.DB, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return r.getTask(ctx, tx, id)
}

func (r Repo) getTask(ctx context.Context, q querier, id string) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type TaskFilters struct {
	ProjectID string
	Status    string
	Limit     int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	return r.listTasks(ctx, r.DB, f)
}

func (r Repo) ListTasksTx(ctx context.Context, tx *sql.Tx, f TaskFilters) ([]domain.Task, error) {
	return r.listTasks(ctx, tx, f)
}

func (r Repo) listTasks(ctx context.Context, q querier, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskCols + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// --- time entries ---

func (r Repo) InsertTimeEntryTx(ctx context.Context, tx *sql.Tx, te domain.TimeEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO time_entries(id,task_id,actor_id,hours,description,created_at) VALUES (?,?,?,?,?,?)`,
		te.ID, te.TaskID, te.ActorID, te.Hours, nullable(te.Description), te.CreatedAt)
	return err
}

func (r Repo) ListTimeEntries(ctx context.Context, taskID string) ([]domain.TimeEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,actor_id,hours,COALESCE(description,''),created_at FROM time_entries WHERE task_id=? ORDER BY created_at ASC, id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TimeEntry
	for rows.Next() {
		var te domain.TimeEntry
		if err := rows.Scan(&te.ID, &te.TaskID, &te.ActorID, &te.Hours, &te.Description, &te.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, te)
	}
	return res, rows.Err()
}

// HasLoggedTime reports whether any time entry references the task.
func (r Repo) HasLoggedTime(ctx context.Context, taskID string) (bool, error) {
	return r.hasLoggedTime(ctx, r.DB, taskID)
}

func (r Repo) HasLoggedTimeTx(ctx context.Context, tx *sql.Tx, taskID string) (bool, error) {
	return r.hasLoggedTime(ctx, tx, taskID)
}

func (r Repo) hasLoggedTime(ctx context.Context, q querier, taskID string) (bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT 1 FROM time_entries WHERE task_id=? LIMIT 1`, taskID)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

// --- project configs ---

func (r Repo) UpsertProjectConfig(ctx context.Context, projectID string, cfg *config.Config) error {
	return upsertProjectConfig(ctx, r.DB, projectID, cfg)
}

func (r Repo) UpsertProjectConfigTx(ctx context.Context, tx *sql.Tx, projectID string, cfg *config.Config) error {
	return upsertProjectConfig(ctx, tx, projectID, cfg)
}

func upsertProjectConfig(ctx context.Context, q querier, projectID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	cfg.Project.ID = projectID
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = q.ExecContext(ctx, `INSERT INTO project_configs(project_id,config_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(project_id) DO UPDATE SET config_json=excluded.config_json, updated_at=excluded.updated_at`, projectID, string(payload), now, now)
	return err
}

func (r Repo) GetProjectConfig(ctx context.Context, projectID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_json FROM project_configs WHERE project_id=?`, projectID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		return nil, err
	}
	if cfg.Project.ID == "" {
		cfg.Project.ID = projectID
	}
	return &cfg, cfg.Validate()
}

// --- events ---

func (r Repo) LatestEvents(ctx context.Context, limit int, projectID, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if projectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, projectID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(project_id,''),entity_kind,COALESCE(entity_id,''),actor_id,COALESCE(payload_json,'') FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.ProjectID, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
