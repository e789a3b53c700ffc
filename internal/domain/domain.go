package domain

// Project owns an equity pool and a set of tasks drawing on it.
// EquityAllocation is fixed at creation; EquityAllocated only grows, and only
// through task approval.
type Project struct {
	ID                   string  `json:"id"`
	Title                string  `json:"title"`
	Status               string  `json:"status"`
	Description          string  `json:"description,omitempty"`
	EquityAllocation     float64 `json:"equity_allocation"`
	EquityAllocated      float64 `json:"equity_allocated"`
	CompletionPercentage int     `json:"completion_percentage"`
	CreatedAt            string  `json:"created_at" format:"date-time"`
	UpdatedAt            string  `json:"updated_at" format:"date-time"`
}

// Task is a unit of work inside a project. EquityAllocation is the share of
// the project's pool committed to it; EquityEarned is set once, on approval.
type Task struct {
	ID                   string     `json:"id"`
	ProjectID            string     `json:"project_id"`
	AcceptedJobID        *string    `json:"accepted_job_id,omitempty"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	EquityAllocation     float64    `json:"equity_allocation"`
	Status               TaskStatus `json:"status" enum:"open,in_progress,review,approved,done,blocked"`
	CompletionPercentage int        `json:"completion_percentage"`
	EstimatedHours       *float64   `json:"estimated_hours,omitempty"`
	HoursLogged          float64    `json:"hours_logged"`
	EquityEarned         *float64   `json:"equity_earned,omitempty"`
	ApprovedAt           *string    `json:"approved_at,omitempty" format:"date-time"`
	LastActivityAt       string     `json:"last_activity_at" format:"date-time"`
	CreatedAt            string     `json:"created_at" format:"date-time"`
	UpdatedAt            string     `json:"updated_at" format:"date-time"`
}

// TimeEntry records logged effort against a task. Append-only.
type TimeEntry struct {
	ID          string  `json:"id"`
	TaskID      string  `json:"task_id"`
	ActorID     string  `json:"actor_id"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
}

// JobApplication tracks a candidate's application to a task. NDAStatus mirrors
// the linked NDA document's lifecycle.
type JobApplication struct {
	ID            string  `json:"id"`
	TaskID        string  `json:"task_id"`
	ApplicantID   string  `json:"applicant_id"`
	Status        string  `json:"status" enum:"pending,accepted,rejected,withdrawn,completed"`
	NDADocumentID *string `json:"nda_document_id,omitempty"`
	NDAStatus     *string `json:"nda_status,omitempty"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

// AcceptedJob is the finalized match between a counterparty and a task. It
// anchors the work contract and award agreement and carries per-document
// status mirrors plus an append-only note log.
type AcceptedJob struct {
	ID                       string   `json:"id"`
	ApplicationID            string   `json:"application_id"`
	TaskID                   string   `json:"task_id"`
	Status                   string   `json:"status"`
	EquityAgreed             *float64 `json:"equity_agreed,omitempty"`
	AgreementDate            *string  `json:"agreement_date,omitempty" format:"date-time"`
	WorkContractDocumentID   *string  `json:"work_contract_document_id,omitempty"`
	WorkContractStatus       *string  `json:"work_contract_status,omitempty"`
	AwardAgreementDocumentID *string  `json:"award_agreement_document_id,omitempty"`
	AwardAgreementStatus     *string  `json:"award_agreement_status,omitempty"`
	Notes                    []Note   `json:"notes,omitempty"`
	CreatedAt                string   `json:"created_at" format:"date-time"`
	UpdatedAt                string   `json:"updated_at" format:"date-time"`
}

// Note is an audit entry on an accepted job's note log.
type Note struct {
	ActorID string  `json:"actor_id"`
	TS      string  `json:"ts" format:"date-time"`
	Text    string  `json:"text"`
	Equity  float64 `json:"equity,omitempty"`
}

// LegalDocument is a generated agreement moving through the document state
// machine. Content is an opaque rendered blob.
type LegalDocument struct {
	ID             string         `json:"id"`
	Type           DocumentType   `json:"document_type" enum:"nda,work_contract,award_agreement"`
	Status         DocumentStatus `json:"status" enum:"draft,review,final,executed,amended,terminated"`
	BusinessID     string         `json:"business_id,omitempty"`
	CounterpartyID string         `json:"counterparty_id,omitempty"`
	ProjectID      *string        `json:"project_id,omitempty"`
	ApplicationID  *string        `json:"application_id,omitempty"`
	AcceptedJobID  *string        `json:"accepted_job_id,omitempty"`
	Version        int            `json:"version"`
	Content        string         `json:"content,omitempty"`
	ExecutedAt     *string        `json:"executed_at,omitempty" format:"date-time"`
	CreatedAt      string         `json:"created_at" format:"date-time"`
	UpdatedAt      string         `json:"updated_at" format:"date-time"`
}

// Signature is an append-only signing record stamped with the document
// version current at signing time.
type Signature struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	SignerID   string `json:"signer_id"`
	Payload    string `json:"payload"`
	Remarks    string `json:"remarks,omitempty"`
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

// ArchivedTask preserves a deleted task's descriptive fields together with
// who removed it and when.
type ArchivedTask struct {
	ID                   string   `json:"id"`
	ProjectID            string   `json:"project_id"`
	Title                string   `json:"title"`
	Description          string   `json:"description,omitempty"`
	EquityAllocation     float64  `json:"equity_allocation"`
	Status               string   `json:"status"`
	CompletionPercentage int      `json:"completion_percentage"`
	EstimatedHours       *float64 `json:"estimated_hours,omitempty"`
	HoursLogged          float64  `json:"hours_logged"`
	CreatedAt            string   `json:"created_at" format:"date-time"`
	DeletedBy            string   `json:"deleted_by"`
	DeletedAt            string   `json:"deleted_at" format:"date-time"`
}

// Event is a row in the append-only audit log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIKey authenticates an actor on the HTTP API.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
