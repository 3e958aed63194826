package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"

	"taskrelay/internal/config"
	"taskrelay/internal/db"
	"taskrelay/internal/domain"
	"taskrelay/internal/exec"
	"taskrelay/internal/migrate"
	"taskrelay/internal/router"
	"taskrelay/internal/store"
)

// stubRunner replays queued results, defaulting to a completed run that
// echoes the prompt.
type stubRunner struct {
	mu    sync.Mutex
	queue []exec.Result
}

func (r *stubRunner) push(res exec.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, res)
}

func (r *stubRunner) Run(ctx context.Context, prompt, workDir, resumeSessionID string) (exec.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return exec.Result{Output: "done: " + prompt, SessionID: "agent-1"}, nil
	}
	res := r.queue[0]
	r.queue = r.queue[1:]
	return res, nil
}

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, runner exec.Runner, mutate func(*Config)) (*testServer, func()) {
	t.Helper()
	dataDir := t.TempDir()
	conn, err := db.Open(db.Config{DataDir: dataDir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if runner == nil {
		runner = &stubRunner{}
	}
	log := zap.NewNop()
	users := store.Users{DB: conn}
	cfg := Config{
		Mode:     config.ModeLocal,
		Users:    users,
		Projects: store.Projects{DB: conn},
		Tasks:    store.NewTasks(),
		Sessions: exec.NewManager(t.TempDir(), runner, log),
		Router:   router.New(users, log),
		Log:      log,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	handler, err := New(cfg)
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
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
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

func detailOf(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope %q: %v", string(data), err)
	}
	return envelope.Detail
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, nil)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
	var health domain.Health
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if health.Status != "healthy" {
		t.Fatalf("expected healthy, got %q", health.Status)
	}
	if health.Version == "" {
		t.Fatalf("expected version to be set")
	}
}

func TestTaskLifecycleLocal(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{
		"prompt": "list files",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if created.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", created.Status)
	}
	if created.Output != "done: list files" {
		t.Fatalf("unexpected output %q", created.Output)
	}
	if created.TaskID == "" || created.SessionID == "" {
		t.Fatalf("expected task and session ids, got %+v", created)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/tasks/"+created.TaskID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get task status %d: %s", res.StatusCode, string(data))
	}
	var fetched domain.Task
	if err := json.Unmarshal(data, &fetched); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if fetched.TaskID != created.TaskID || fetched.Status != domain.StatusCompleted {
		t.Fatalf("unexpected fetched task %+v", fetched)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/tasks?session_id="+created.SessionID, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list tasks status %d: %s", res.StatusCode, string(data))
	}
	var listed []domain.Task
	if err := json.Unmarshal(data, &listed); err != nil {
		t.Fatalf("unmarshal tasks: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 task, got %d", len(listed))
	}
}

func TestTaskNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, nil)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/api/v1/tasks/missing", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "Task missing not found" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestApprovalFlow(t *testing.T) {
	runner := &stubRunner{}
	runner.push(exec.Result{
		Output:    "ready to deploy",
		SessionID: "agent-1",
		ApprovalRequest: &domain.ApprovalRequest{
			Action:      "deploy",
			Description: "Deploy to production?",
			Options: []domain.ApprovalOption{
				{ID: "yes", Label: "Yes"},
				{ID: "no", Label: "No"},
			},
		},
	})
	runner.push(exec.Result{Output: "deployed", SessionID: "agent-1"})

	srv, cleanup := newTestServer(t, runner, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{
		"prompt": "deploy the service",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if created.Status != domain.StatusNeedsApproval {
		t.Fatalf("expected needs_approval, got %s", created.Status)
	}
	if created.ApprovalRequest == nil || created.ApprovalRequest.Action != "deploy" {
		t.Fatalf("expected approval request, got %+v", created.ApprovalRequest)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks/"+created.TaskID+"/approve", map[string]any{
		"option_id": "yes",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d: %s", res.StatusCode, string(data))
	}
	var approved domain.Task
	if err := json.Unmarshal(data, &approved); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if approved.Status != domain.StatusCompleted {
		t.Fatalf("expected completed, got %s", approved.Status)
	}
	if approved.Output != "ready to deploy\ndeployed" {
		t.Fatalf("expected appended output, got %q", approved.Output)
	}
	if approved.ApprovalRequest != nil {
		t.Fatalf("expected approval request cleared")
	}

	// A second approval against the now-completed task must be rejected.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks/"+created.TaskID+"/approve", map[string]any{
		"option_id": "yes",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "Task "+created.TaskID+" is not awaiting approval" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{"prompt": "hi"}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create task status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Task
	_ = json.Unmarshal(data, &created)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/sessions", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list sessions status %d: %s", res.StatusCode, string(data))
	}
	var sessions []domain.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		t.Fatalf("unmarshal sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != created.SessionID {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
	if sessions[0].TaskCount != 1 {
		t.Fatalf("expected task count 1, got %d", sessions[0].TaskCount)
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/sessions/"+created.SessionID, nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("terminate status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/sessions/"+created.SessionID, nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
}

func TestProjectEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, nil)
	defer cleanup()
	client := srv.Client()
	dir := t.TempDir()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/projects", map[string]any{
		"discord_user_id": "u-1",
		"name":            "API",
		"path":            dir,
		"description":     "backend",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("add project status %d: %s", res.StatusCode, string(data))
	}
	var created domain.Project
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal project: %v", err)
	}
	if created.Name != "api" {
		t.Fatalf("expected normalized name, got %q", created.Name)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/projects", map[string]any{
		"discord_user_id": "u-1",
		"name":            "api",
		"path":            dir,
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 duplicate, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "Project 'api' already exists for your account" {
		t.Fatalf("unexpected detail %q", detail)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/projects/u-1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list projects status %d: %s", res.StatusCode, string(data))
	}
	var listed []domain.Project
	if err := json.Unmarshal(data, &listed); err != nil {
		t.Fatalf("unmarshal projects: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 project, got %d", len(listed))
	}

	// Other users see none.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/projects/u-2", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list projects status %d: %s", res.StatusCode, string(data))
	}
	listed = nil
	_ = json.Unmarshal(data, &listed)
	if len(listed) != 0 {
		t.Fatalf("expected no projects for u-2, got %d", len(listed))
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/projects/u-1/api", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete project status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/projects/u-1/api", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "Project 'api' not found" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestTaskWithUnknownProject(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, nil)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{
		"prompt":          "build it",
		"project":         "ghost",
		"discord_user_id": "u-1",
	}, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "Project 'ghost' not found. Use /project list to see your projects." {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestUserAndShareEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, nil)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/users/register-local", map[string]any{
		"discord_id":   "u-1",
		"discord_name": "alice",
		"wrapper_url":  "http://laptop:8000",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", res.StatusCode, string(data))
	}
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		t.Fatalf("unmarshal user: %v", err)
	}
	if user.LocalWrapperURL == nil || *user.LocalWrapperURL != "http://laptop:8000" {
		t.Fatalf("unexpected user %+v", user)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/users/u-1/share", map[string]any{
		"target_user_id": "u-2",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("share status %d: %s", res.StatusCode, string(data))
	}
	var shares domain.ShareList
	if err := json.Unmarshal(data, &shares); err != nil {
		t.Fatalf("unmarshal shares: %v", err)
	}
	if len(shares.SharedWith) != 1 || shares.SharedWith[0] != "u-2" {
		t.Fatalf("unexpected shares %+v", shares)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/users/u-2/accessible-wrappers", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("accessible status %d: %s", res.StatusCode, string(data))
	}
	var accessible domain.AccessibleWrappers
	if err := json.Unmarshal(data, &accessible); err != nil {
		t.Fatalf("unmarshal accessible: %v", err)
	}
	if len(accessible.Wrappers) != 1 || accessible.Wrappers[0].OwnerID != "u-1" || accessible.Wrappers[0].IsOwn {
		t.Fatalf("unexpected accessible wrappers %+v", accessible.Wrappers)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/users/u-1/share/u-2", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unshare status %d: %s", res.StatusCode, string(data))
	}
	shares = domain.ShareList{SharedWith: []string{"sentinel"}}
	if err := json.Unmarshal(data, &shares); err != nil {
		t.Fatalf("unmarshal shares: %v", err)
	}
	if len(shares.SharedWith) != 0 {
		t.Fatalf("expected empty share list, got %+v", shares.SharedWith)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/users/u-1/share/u-2", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "User 'u-1' not found or not shared with 'u-2'" {
		t.Fatalf("unexpected detail %q", detail)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/users/u-1/set-mode", map[string]any{
		"mode": "cluster",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set-mode status %d: %s", res.StatusCode, string(data))
	}
	user = domain.User{}
	_ = json.Unmarshal(data, &user)
	if user.DefaultMode != domain.ModeCluster {
		t.Fatalf("expected cluster default, got %s", user.DefaultMode)
	}

	res, _ = doJSON(t, client, http.MethodDelete, srv.URL+"/api/v1/users/u-1/local", nil, nil)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("unregister status %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/users/u-1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get user status %d: %s", res.StatusCode, string(data))
	}
	user = domain.User{}
	_ = json.Unmarshal(data, &user)
	if user.LocalWrapperURL != nil {
		t.Fatalf("expected wrapper url cleared, got %+v", user)
	}
}

func TestOrchestratorRequiresUserID(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, func(cfg *Config) {
		cfg.Mode = config.ModeOrchestrator
	})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{
		"prompt": "hello",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "discord_user_id is required in orchestrator mode" {
		t.Fatalf("unexpected detail %q", detail)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/tasks/t-1", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "discord_user_id query parameter is required in orchestrator mode" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestOrchestratorRejectsUnregisteredUser(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, func(cfg *Config) {
		cfg.Mode = config.ModeOrchestrator
	})
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{
		"prompt":          "hello",
		"discord_user_id": "u-1",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "User 'u-1' is not registered. Use /register to set up your wrapper." {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestOrchestratorForwardsToLocalWrapper(t *testing.T) {
	// Backing wrapper runs in local mode.
	backend, backendCleanup := newTestServer(t, nil, nil)
	defer backendCleanup()

	srv, cleanup := newTestServer(t, nil, func(cfg *Config) {
		cfg.Mode = config.ModeOrchestrator
	})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/users/register-local", map[string]any{
		"discord_id":   "u-1",
		"discord_name": "alice",
		"wrapper_url":  backend.URL,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/tasks", map[string]any{
		"prompt":          "say hi",
		"discord_user_id": "u-1",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("forwarded create status %d: %s", res.StatusCode, string(data))
	}
	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		t.Fatalf("unmarshal task: %v", err)
	}
	if task.Status != domain.StatusCompleted || task.Output != "done: say hi" {
		t.Fatalf("unexpected forwarded task %+v", task)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/tasks/"+task.TaskID+"?discord_user_id=u-1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("forwarded get status %d: %s", res.StatusCode, string(data))
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv, cleanup := newTestServer(t, nil, func(cfg *Config) {
		cfg.Auth = AuthConfig{JWTSecret: "test-secret"}
	})
	defer cleanup()
	client := srv.Client()

	// Health stays open.
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/sessions", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	if detail := detailOf(t, data); detail != "authentication required" {
		t.Fatalf("unexpected detail %q", detail)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/sessions", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}

	token, err := SignToken("test-secret", "admin")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/sessions", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", res.StatusCode, string(data))
	}
}
