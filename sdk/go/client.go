package relaysdk

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

	"taskrelay/internal/domain"
)

// Client is a minimal TaskRelay wrapper HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. Task submission blocks until
// the executor returns, so the default timeout is generous.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 300 * time.Second,
	}
}

// APIError wraps non-2xx responses. The body is kept verbatim so callers
// can surface backend rejections unmodified.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Health checks the wrapper service.
func (c *Client) Health(ctx context.Context) (domain.Health, error) {
	var resp domain.Health
	if err := c.do(ctx, http.MethodGet, "api/v1/health", nil, &resp); err != nil {
		return resp, fmt.Errorf("health check failed: %w", err)
	}
	return resp, nil
}

// SubmitTask submits a task for execution and blocks until the backend
// returns a task snapshot.
func (c *Client) SubmitTask(ctx context.Context, req domain.TaskRequest) (domain.Task, error) {
	var resp domain.Task
	if err := c.do(ctx, http.MethodPost, "api/v1/tasks", req, &resp); err != nil {
		return resp, fmt.Errorf("task submission failed: %w", err)
	}
	return resp, nil
}

// GetTask fetches a fresh task snapshot by id.
func (c *Client) GetTask(ctx context.Context, taskID, userID string) (domain.Task, error) {
	endpoint := "api/v1/tasks/" + url.PathEscape(taskID)
	if userID != "" {
		endpoint += "?discord_user_id=" + url.QueryEscape(userID)
	}
	var resp domain.Task
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return resp, fmt.Errorf("failed to get task: %w", err)
	}
	return resp, nil
}

// ListTasks lists tasks, optionally filtered by session.
func (c *Client) ListTasks(ctx context.Context, sessionID string) ([]domain.Task, error) {
	endpoint := "api/v1/tasks"
	if sessionID != "" {
		endpoint += "?session_id=" + url.QueryEscape(sessionID)
	}
	var resp []domain.Task
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return resp, nil
}

// SubmitApproval answers a pending approval on a task. The returned
// snapshot may itself carry a fresh approval request.
func (c *Client) SubmitApproval(ctx context.Context, taskID, userID string, sub domain.ApprovalSubmission) (domain.Task, error) {
	endpoint := "api/v1/tasks/" + url.PathEscape(taskID) + "/approve"
	if userID != "" {
		endpoint += "?discord_user_id=" + url.QueryEscape(userID)
	}
	var resp domain.Task
	if err := c.do(ctx, http.MethodPost, endpoint, sub, &resp); err != nil {
		return resp, fmt.Errorf("approval submission failed: %w", err)
	}
	return resp, nil
}

// ListSessions lists active sessions.
func (c *Client) ListSessions(ctx context.Context) ([]domain.Session, error) {
	var resp []domain.Session
	if err := c.do(ctx, http.MethodGet, "api/v1/sessions", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return resp, nil
}

// GetSession fetches one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	var resp domain.Session
	if err := c.do(ctx, http.MethodGet, "api/v1/sessions/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return resp, fmt.Errorf("failed to get session: %w", err)
	}
	return resp, nil
}

// TerminateSession terminates a session and discards its context.
func (c *Client) TerminateSession(ctx context.Context, sessionID string) error {
	if err := c.do(ctx, http.MethodDelete, "api/v1/sessions/"+url.PathEscape(sessionID), nil, nil); err != nil {
		return fmt.Errorf("failed to terminate session: %w", err)
	}
	return nil
}

// CreateProject registers a project for the given owner.
func (c *Client) CreateProject(ctx context.Context, req domain.ProjectRequest) (domain.Project, error) {
	var resp domain.Project
	if err := c.do(ctx, http.MethodPost, "api/v1/projects", req, &resp); err != nil {
		return resp, fmt.Errorf("failed to add project: %w", err)
	}
	return resp, nil
}

// ListProjects lists projects owned by a user.
func (c *Client) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	var resp []domain.Project
	if err := c.do(ctx, http.MethodGet, "api/v1/projects/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return resp, nil
}

// DeleteProject removes a project by name.
func (c *Client) DeleteProject(ctx context.Context, userID, name string) error {
	endpoint := "api/v1/projects/" + url.PathEscape(userID) + "/" + url.PathEscape(name)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("failed to remove project: %w", err)
	}
	return nil
}

// GetUser fetches a user's registration record.
func (c *Client) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var resp domain.User
	if err := c.do(ctx, http.MethodGet, "api/v1/users/"+url.PathEscape(userID), nil, &resp); err != nil {
		return resp, fmt.Errorf("failed to get user: %w", err)
	}
	return resp, nil
}

// ListUsers lists all registered users.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var resp []domain.User
	if err := c.do(ctx, http.MethodGet, "api/v1/users", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return resp, nil
}

// RegisterLocal registers (or updates) a user's local wrapper endpoint.
func (c *Client) RegisterLocal(ctx context.Context, req domain.RegisterLocalRequest) (domain.User, error) {
	var resp domain.User
	if err := c.do(ctx, http.MethodPost, "api/v1/users/register-local", req, &resp); err != nil {
		return resp, fmt.Errorf("registration failed: %w", err)
	}
	return resp, nil
}

// UnregisterLocal removes a user's local wrapper registration.
func (c *Client) UnregisterLocal(ctx context.Context, userID string) error {
	if err := c.do(ctx, http.MethodDelete, "api/v1/users/"+url.PathEscape(userID)+"/local", nil, nil); err != nil {
		return fmt.Errorf("unregistration failed: %w", err)
	}
	return nil
}

// EnableCluster enables cluster execution for a user.
func (c *Client) EnableCluster(ctx context.Context, req domain.EnableClusterRequest) (domain.User, error) {
	var resp domain.User
	if err := c.do(ctx, http.MethodPost, "api/v1/users/enable-cluster", req, &resp); err != nil {
		return resp, fmt.Errorf("failed to enable cluster: %w", err)
	}
	return resp, nil
}

// DisableCluster disables cluster execution for a user.
func (c *Client) DisableCluster(ctx context.Context, userID string) error {
	if err := c.do(ctx, http.MethodDelete, "api/v1/users/"+url.PathEscape(userID)+"/cluster", nil, nil); err != nil {
		return fmt.Errorf("failed to disable cluster: %w", err)
	}
	return nil
}

// SetDefaultMode sets a user's default execution mode.
func (c *Client) SetDefaultMode(ctx context.Context, userID string, mode domain.ExecutionMode) (domain.User, error) {
	var resp domain.User
	endpoint := "api/v1/users/" + url.PathEscape(userID) + "/set-mode"
	if err := c.do(ctx, http.MethodPost, endpoint, domain.SetModeRequest{Mode: mode}, &resp); err != nil {
		return resp, fmt.Errorf("failed to set mode: %w", err)
	}
	return resp, nil
}

// ShareWrapper grants target access to owner's wrapper.
func (c *Client) ShareWrapper(ctx context.Context, ownerID, targetID string) (domain.ShareList, error) {
	var resp domain.ShareList
	endpoint := "api/v1/users/" + url.PathEscape(ownerID) + "/share"
	if err := c.do(ctx, http.MethodPost, endpoint, domain.ShareRequest{TargetUserID: targetID}, &resp); err != nil {
		return resp, fmt.Errorf("failed to share wrapper: %w", err)
	}
	return resp, nil
}

// UnshareWrapper revokes target's access to owner's wrapper.
func (c *Client) UnshareWrapper(ctx context.Context, ownerID, targetID string) (domain.ShareList, error) {
	var resp domain.ShareList
	endpoint := "api/v1/users/" + url.PathEscape(ownerID) + "/share/" + url.PathEscape(targetID)
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, &resp); err != nil {
		return resp, fmt.Errorf("failed to unshare wrapper: %w", err)
	}
	return resp, nil
}

// ListShares lists the users an owner has shared their wrapper with.
func (c *Client) ListShares(ctx context.Context, ownerID string) (domain.ShareList, error) {
	var resp domain.ShareList
	endpoint := "api/v1/users/" + url.PathEscape(ownerID) + "/share"
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return resp, fmt.Errorf("failed to list shares: %w", err)
	}
	return resp, nil
}

// AccessibleWrappers lists the wrappers a user may submit tasks against.
func (c *Client) AccessibleWrappers(ctx context.Context, userID string) (domain.AccessibleWrappers, error) {
	var resp domain.AccessibleWrappers
	endpoint := "api/v1/users/" + url.PathEscape(userID) + "/accessible-wrappers"
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return resp, fmt.Errorf("failed to list accessible wrappers: %w", err)
	}
	return resp, nil
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
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
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
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
