package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/config"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/db"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/domain"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/engine"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/migrate"
	"github.com/Sweaquity/sweaquity-a2885038-sub003/internal/repo"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("proj-1"))
	if _, err := e.InitProject(context.Background(), "proj-1", "Marketplace MVP", 20, "", "tester"); err != nil {
		t.Fatalf("init project: %v", err)
	}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testJWTSecret},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func authHeaders(t *testing.T) map[string]string {
	return map[string]string{"Authorization": "Bearer " + signToken(t, "tester")}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return envelope.Error.Code
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv := newTestServer(t)
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401: %s", res.StatusCode, string(data))
	}
	if errorCode(t, data) != "unauthorized" {
		t.Fatalf("envelope: %s", string(data))
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, data) != "invalid_credentials" {
		t.Fatalf("bad token: status %d body %s", res.StatusCode, string(data))
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv := newTestServer(t)
	rawKey := uuid.New().String()
	tx, err := srv.Engine.DB.Begin()
	if err != nil {
		t.Fatal(err)
	}
	err = srv.Engine.Repo.InsertAPIKey(context.Background(), tx, domain.APIKey{
		ID:        uuid.New().String(),
		ActorID:   "machine-1",
		Name:      "ci",
		KeyHash:   repo.HashAPIKey(rawKey),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{
		"X-Api-Key": rawKey,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("api key auth: status %d body %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, map[string]string{
		"X-Api-Key": "wrong",
	})
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, data) != "invalid_credentials" {
		t.Fatalf("wrong key: status %d body %s", res.StatusCode, string(data))
	}
}

func TestTaskFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	headers := authHeaders(t)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/tasks", map[string]any{
		"title":             "Ship feature",
		"equity_allocation": 15,
		"estimated_hours":   10,
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+task.ID+"/effort", map[string]any{
		"hours": 10,
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("log effort status %d: %s", res.StatusCode, string(data))
	}
	var effort engine.EffortResult
	if err := json.Unmarshal(data, &effort); err != nil {
		t.Fatalf("unmarshal effort: %v", err)
	}
	if effort.CompletionPercentage != 100 || effort.Status != domain.TaskReview {
		t.Fatalf("effort result: %+v", effort)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+task.ID+"/approve", nil, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d: %s", res.StatusCode, string(data))
	}
	var approval engine.ApprovalResult
	if err := json.Unmarshal(data, &approval); err != nil {
		t.Fatalf("unmarshal approval: %v", err)
	}
	if approval.ProjectEquityAllocated != 15 || approval.Task.Status != domain.TaskApproved {
		t.Fatalf("approval result: %+v", approval)
	}

	// a second stake overshooting the pool surfaces as a 409 with the engine code
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/tasks", map[string]any{
		"title":             "Too greedy",
		"equity_allocation": 6,
		"estimated_hours":   1,
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create second task: %d %s", res.StatusCode, string(data))
	}
	var second domain.Task
	if err := json.Unmarshal(data, &second); err != nil {
		t.Fatal(err)
	}
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/tasks/"+second.ID+"/status", map[string]any{
		"status": "in_progress",
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set status: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/tasks/"+second.ID+"/approve", nil, headers)
	if res.StatusCode != http.StatusConflict || errorCode(t, data) != "allocation_exceeded" {
		t.Fatalf("over-pool approval: status %d body %s", res.StatusCode, string(data))
	}
}

func TestDocumentFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	client := srv.Client()
	headers := authHeaders(t)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects/proj-1/tasks", map[string]any{
		"title":             "Contracted work",
		"equity_allocation": 5,
		"estimated_hours":   20,
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %d %s", res.StatusCode, string(data))
	}
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatal(err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/applications", map[string]any{
		"task_id":      task.ID,
		"applicant_id": "alice",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create application: %d %s", res.StatusCode, string(data))
	}
	var app domain.JobApplication
	if err := json.Unmarshal(data, &app); err != nil {
		t.Fatal(err)
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/applications/"+app.ID+"/accept", nil, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("accept application: %d %s", res.StatusCode, string(data))
	}
	var job domain.AcceptedJob
	if err := json.Unmarshal(data, &job); err != nil {
		t.Fatal(err)
	}

	// an award agreement before the work contract is a 422
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/documents", map[string]any{
		"document_type":   "award_agreement",
		"accepted_job_id": job.ID,
	}, headers)
	if res.StatusCode != http.StatusUnprocessableEntity || errorCode(t, data) != "missing_prerequisite_document" {
		t.Fatalf("premature award: status %d body %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/documents", map[string]any{
		"document_type":     "work_contract",
		"accepted_job_id":   job.ID,
		"counterparty_name": "Alice Jones",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("generate work contract: %d %s", res.StatusCode, string(data))
	}
	var doc domain.LegalDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Status != domain.DocDraft {
		t.Fatalf("new document status: %s", doc.Status)
	}

	// drafts are not signable
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/documents/"+doc.ID+"/signatures", map[string]any{
		"payload": "signed: Tester",
	}, headers)
	if res.StatusCode != http.StatusConflict || errorCode(t, data) != "not_signable" {
		t.Fatalf("sign draft: status %d body %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/documents/"+doc.ID+"/status", map[string]any{
		"status": "review",
	}, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advance to review: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/documents/"+doc.ID+"/signatures", map[string]any{
		"payload": "signed: Tester",
	}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("sign in review: %d %s", res.StatusCode, string(data))
	}
	var sig domain.Signature
	if err := json.Unmarshal(data, &sig); err != nil {
		t.Fatal(err)
	}
	if sig.SignerID != "tester" || sig.Version != 1 {
		t.Fatalf("signature: %+v", sig)
	}
}
