package sweaquitysdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Sweaquity HTTP API client.
type Client struct {
	BaseURL     string
	ProjectID   string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// Task represents the API task model (partial).
type Task struct {
	ID                   string   `json:"id"`
	ProjectID            string   `json:"project_id"`
	Title                string   `json:"title"`
	Status               string   `json:"status"`
	EquityAllocation     float64  `json:"equity_allocation"`
	CompletionPercentage int      `json:"completion_percentage"`
	EstimatedHours       *float64 `json:"estimated_hours,omitempty"`
	HoursLogged          float64  `json:"hours_logged"`
	EquityEarned         *float64 `json:"equity_earned,omitempty"`
}

// EffortResult is the task snapshot after logging hours.
type EffortResult struct {
	TaskID               string  `json:"task_id"`
	TimeEntryID          string  `json:"time_entry_id"`
	HoursLogged          float64 `json:"hours_logged"`
	CompletionPercentage int     `json:"completion_percentage"`
	Status               string  `json:"status"`
	ProjectCompletion    int     `json:"project_completion"`
}

// ApprovalResult reports the state after an approval intent.
type ApprovalResult struct {
	Task                   Task    `json:"task"`
	ProjectEquityAllocated float64 `json:"project_equity_allocated"`
	AlreadyApproved        bool    `json:"already_approved"`
}

// Application represents a candidate's application to a task.
type Application struct {
	ID          string  `json:"id"`
	TaskID      string  `json:"task_id"`
	ApplicantID string  `json:"applicant_id"`
	Status      string  `json:"status"`
	NDAStatus   *string `json:"nda_status,omitempty"`
}

// AcceptedJob is the finalized match anchoring contract documents.
type AcceptedJob struct {
	ID            string   `json:"id"`
	ApplicationID string   `json:"application_id"`
	TaskID        string   `json:"task_id"`
	Status        string   `json:"status"`
	EquityAgreed  *float64 `json:"equity_agreed,omitempty"`
}

// Document represents a legal document (partial).
type Document struct {
	ID      string `json:"id"`
	Type    string `json:"document_type"`
	Status  string `json:"status"`
	Version int    `json:"version"`
	Content string `json:"content,omitempty"`
}

// Signature represents a signing record.
type Signature struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	SignerID   string `json:"signer_id"`
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
}

// Event represents an audit log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTask creates a task in the client's project.
func (c *Client) CreateTask(ctx context.Context, title string, equity, estimatedHours float64) (Task, error) {
	body := map[string]any{
		"title":             title,
		"equity_allocation": equity,
		"estimated_hours":   estimatedHours,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, c.projectPath("tasks"), body, &resp)
	return resp, err
}

// LogEffort logs hours against a task.
func (c *Client) LogEffort(ctx context.Context, taskID string, hours float64, description string) (EffortResult, error) {
	body := map[string]any{
		"hours":       hours,
		"description": description,
	}
	var resp EffortResult
	endpoint := fmt.Sprintf("v0/tasks/%s/effort", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ApproveTask commits the task's equity stake.
func (c *Client) ApproveTask(ctx context.Context, taskID string) (ApprovalResult, error) {
	var resp ApprovalResult
	endpoint := fmt.Sprintf("v0/tasks/%s/approve", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// SetTaskStatus moves a task between statuses.
func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v0/tasks/%s/status", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// CreateApplication applies a candidate to a task.
func (c *Client) CreateApplication(ctx context.Context, taskID, applicantID string) (Application, error) {
	body := map[string]any{
		"task_id":      taskID,
		"applicant_id": applicantID,
	}
	var resp Application
	err := c.do(ctx, http.MethodPost, "v0/applications", body, &resp)
	return resp, err
}

// AcceptApplication finalizes the match, creating the accepted job.
func (c *Client) AcceptApplication(ctx context.Context, applicationID string) (AcceptedJob, error) {
	var resp AcceptedJob
	endpoint := fmt.Sprintf("v0/applications/%s/accept", url.PathEscape(applicationID))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// GenerateDocument renders and persists a legal document in draft.
func (c *Client) GenerateDocument(ctx context.Context, docType, applicationID, acceptedJobID string) (Document, error) {
	body := map[string]any{
		"document_type":   docType,
		"application_id":  applicationID,
		"accepted_job_id": acceptedJobID,
	}
	var resp Document
	err := c.do(ctx, http.MethodPost, "v0/documents", body, &resp)
	return resp, err
}

// AdvanceDocument moves a document to the target status.
func (c *Client) AdvanceDocument(ctx context.Context, documentID, status string) (Document, error) {
	var resp Document
	endpoint := fmt.Sprintf("v0/documents/%s/status", url.PathEscape(documentID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// SignDocument records a signature.
func (c *Client) SignDocument(ctx context.Context, documentID, payload, remarks string) (Signature, error) {
	body := map[string]any{
		"payload": payload,
		"remarks": remarks,
	}
	var resp Signature
	endpoint := fmt.Sprintf("v0/documents/%s/signatures", url.PathEscape(documentID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
