// Package router forwards task requests to user wrappers in
// orchestrator mode. Routing keys off the server-asserted requester id;
// a task may target another user's wrapper only via an explicit sharing
// relation.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"taskrelay/internal/domain"
	"taskrelay/internal/store"
	relaysdk "taskrelay/sdk/go"
)

// RoutingError is a policy rejection; its message is user-facing.
type RoutingError struct {
	Message string
}

func (e *RoutingError) Error() string { return e.Message }

func rejectf(format string, args ...any) error {
	return &RoutingError{Message: fmt.Sprintf(format, args...)}
}

type route struct {
	targetURL string
	authToken string
}

// Router resolves and forwards requests to local wrappers.
type Router struct {
	Users   store.Users
	Timeout time.Duration
	Log     *zap.Logger

	// newClient is swappable for tests.
	newClient func(baseURL, token string) *relaysdk.Client
}

func New(users store.Users, log *zap.Logger) *Router {
	return &Router{Users: users, Timeout: 300 * time.Second, Log: log}
}

func (r *Router) client(rt route) *relaysdk.Client {
	if r.newClient != nil {
		return r.newClient(rt.targetURL, rt.authToken)
	}
	c := relaysdk.New(rt.targetURL)
	c.BearerToken = rt.authToken
	if r.Timeout > 0 {
		c.Timeout = r.Timeout
	}
	return c
}

// resolve decides which user's wrapper serves a request and in which mode.
func (r *Router) resolve(ctx context.Context, requesterID string, targetUserID *string, requestedMode *domain.ExecutionMode) (route, error) {
	var user domain.User
	var err error

	if targetUserID != nil && *targetUserID != requesterID {
		ok, err := r.Users.CanAccess(ctx, *targetUserID, requesterID)
		if err != nil {
			return route{}, err
		}
		if !ok {
			return route{}, rejectf("You don't have access to that user's wrapper. Ask them to run `/share add user:@you` to grant access.")
		}
		user, err = r.Users.Get(ctx, *targetUserID)
		if errors.Is(err, store.ErrNotFound) {
			return route{}, rejectf("Target user '%s' is not registered.", *targetUserID)
		}
		if err != nil {
			return route{}, err
		}
	} else {
		user, err = r.Users.Get(ctx, requesterID)
		if errors.Is(err, store.ErrNotFound) {
			return route{}, rejectf("User '%s' is not registered. Use /register to set up your wrapper.", requesterID)
		}
		if err != nil {
			return route{}, err
		}
	}

	// Explicit request beats the user's default.
	mode := user.DefaultMode
	if requestedMode != nil {
		mode = *requestedMode
	}

	switch mode {
	case domain.ModeLocal:
		if user.LocalWrapperURL == nil || *user.LocalWrapperURL == "" {
			return route{}, rejectf("No local wrapper registered. Use /register local to configure your wrapper URL.")
		}
		token, err := r.Users.LocalAuthToken(ctx, user.DiscordID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return route{}, err
		}
		return route{targetURL: *user.LocalWrapperURL, authToken: token}, nil
	case domain.ModeCluster:
		if !user.ClusterEnabled {
			return route{}, rejectf("Cluster access not enabled for your account.")
		}
		return route{}, rejectf("Cluster execution not yet implemented")
	default:
		return route{}, rejectf("Invalid execution mode: %s", mode)
	}
}

// SubmitTask forwards a task to the resolved wrapper. Identity and mode
// fields are stripped from the forwarded request; the receiving wrapper
// executes directly.
func (r *Router) SubmitTask(ctx context.Context, req domain.TaskRequest) (domain.Task, error) {
	if req.UserID == nil || *req.UserID == "" {
		return domain.Task{}, rejectf("discord_user_id is required for task routing")
	}

	rt, err := r.resolve(ctx, *req.UserID, req.TargetUserID, req.Mode)
	if err != nil {
		return domain.Task{}, err
	}

	if r.Log != nil {
		r.Log.Info("forwarding task", zap.String("user", *req.UserID), zap.String("target", rt.targetURL))
	}

	forward := domain.TaskRequest{
		Prompt:     req.Prompt,
		SessionID:  req.SessionID,
		Project:    req.Project,
		WorkingDir: req.WorkingDir,
	}
	task, err := r.client(rt).SubmitTask(ctx, forward)
	if err != nil {
		return domain.Task{}, r.wrapForwardError(err, rt, "")
	}
	return task, nil
}

// GetTask forwards a task status lookup to the requester's wrapper.
func (r *Router) GetTask(ctx context.Context, userID, taskID string) (domain.Task, error) {
	rt, err := r.resolve(ctx, userID, nil, nil)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := r.client(rt).GetTask(ctx, taskID, "")
	if err != nil {
		return domain.Task{}, r.wrapForwardError(err, rt, taskID)
	}
	return task, nil
}

// SubmitApproval forwards an approval submission to the requester's wrapper.
func (r *Router) SubmitApproval(ctx context.Context, userID, taskID string, sub domain.ApprovalSubmission) (domain.Task, error) {
	rt, err := r.resolve(ctx, userID, nil, nil)
	if err != nil {
		return domain.Task{}, err
	}
	if r.Log != nil {
		r.Log.Info("forwarding approval", zap.String("user", userID), zap.String("target", rt.targetURL))
	}
	task, err := r.client(rt).SubmitApproval(ctx, taskID, "", sub)
	if err != nil {
		return domain.Task{}, r.wrapForwardError(err, rt, "")
	}
	return task, nil
}

func (r *Router) wrapForwardError(err error, rt route, taskID string) error {
	var apiErr *relaysdk.APIError
	if errors.As(err, &apiErr) {
		if taskID != "" && apiErr.StatusCode == http.StatusNotFound {
			return rejectf("Task %s not found on your local wrapper", taskID)
		}
		return rejectf("Local wrapper error: %s", apiErr.Body)
	}
	return rejectf("Cannot connect to your local wrapper at %s. Is it running?", rt.targetURL)
}
