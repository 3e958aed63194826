package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"taskrelay/internal/config"
	"taskrelay/internal/domain"
	"taskrelay/internal/exec"
	"taskrelay/internal/router"
	"taskrelay/internal/store"
)

// Config for the HTTP API handler.
type Config struct {
	Mode     string
	Version  string
	BasePath string
	Users    store.Users
	Projects store.Projects
	Tasks    *store.Tasks
	Sessions *exec.Manager
	Router   *router.Router
	// PathAllowed re-checks project paths at execution time; nil means
	// no restriction.
	PathAllowed func(string) bool
	Auth        AuthConfig
	Log         *zap.Logger
}

func (c Config) isOrchestrator() bool { return c.Mode == config.ModeOrchestrator }

// apiError models the error envelope: a bare detail string.
type apiError struct {
	status int
	Detail string `json:"detail"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Detail }

func newAPIError(status int, format string, args ...any) huma.StatusError {
	return &apiError{status: status, Detail: fmt.Sprintf(format, args...)}
}

// New returns an HTTP handler exposing the relay API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the detail envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "%s", msg)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400
			status = http.StatusBadRequest
		}
		return newAPIError(status, "%s", msg)
	}

	r := chi.NewRouter()
	r.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("TaskRelay API", version(cfg))
	api := humachi.New(r, hcfg)
	group := huma.NewGroup(api, basePath)

	start := time.Now()
	registerHealth(group, cfg, start)
	registerTasks(group, cfg)
	registerSessions(group, cfg)
	registerProjects(group, cfg)
	registerUsers(group, cfg)
	registerShares(group, cfg)

	return r, nil
}

func version(cfg Config) string {
	if cfg.Version != "" {
		return cfg.Version
	}
	return "0.1.0"
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	var re *router.RoutingError
	if errors.As(err, &re) {
		return newAPIError(http.StatusBadRequest, "%s", re.Message)
	}
	if errors.Is(err, store.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "%s", err.Error())
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "not within allowed"),
		strings.Contains(lowered, "does not exist"),
		strings.Contains(lowered, "not a directory"),
		strings.Contains(lowered, "already exists"),
		strings.Contains(lowered, "invalid"),
		strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "%s", msg)
	default:
		return newAPIError(http.StatusInternalServerError, "%s", msg)
	}
}

func registerHealth(api huma.API, cfg Config, start time.Time) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Health `json:"body"`
	}, error) {
		return &struct {
			Body domain.Health `json:"body"`
		}{Body: domain.Health{
			Status:        "healthy",
			Version:       version(cfg),
			UptimeSeconds: time.Since(start).Seconds(),
		}}, nil
	})
}

// applyResult maps an executor outcome onto a task record.
func applyResult(t *domain.Task, res exec.Result) {
	switch {
	case res.ApprovalRequest != nil:
		t.Status = domain.StatusNeedsApproval
	case res.Failed:
		t.Status = domain.StatusFailed
	default:
		t.Status = domain.StatusCompleted
	}
	t.ApprovalRequest = res.ApprovalRequest
	t.Error = nil
	if res.Error != "" {
		msg := res.Error
		t.Error = &msg
	}
}

func markFailed(tasks *store.Tasks, taskID, msg string) {
	tasks.Update(taskID, func(t *domain.Task) {
		t.Status = domain.StatusFailed
		t.Error = &msg
	})
}

func registerTasks(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-task",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create and execute a task",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body domain.TaskRequest `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		req := input.Body
		if req.Prompt == "" {
			return nil, newAPIError(http.StatusBadRequest, "prompt is required")
		}

		// Orchestrator mode routes to the user's own wrapper.
		if cfg.isOrchestrator() {
			if req.UserID == nil || *req.UserID == "" {
				return nil, newAPIError(http.StatusBadRequest, "discord_user_id is required in orchestrator mode")
			}
			task, err := cfg.Router.SubmitTask(ctx, req)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Task `json:"body"`
			}{Body: task}, nil
		}

		// Local mode executes directly. The working directory comes from
		// the project registry; a client-supplied working_dir is ignored.
		workingDir := ""
		if req.Project != nil && *req.Project != "" {
			if req.UserID == nil || *req.UserID == "" {
				return nil, newAPIError(http.StatusBadRequest, "discord_user_id is required when specifying a project")
			}
			p, err := cfg.Projects.Get(ctx, *req.UserID, *req.Project)
			if errors.Is(err, store.ErrNotFound) {
				return nil, newAPIError(http.StatusNotFound, "Project '%s' not found. Use /project list to see your projects.", *req.Project)
			}
			if err != nil {
				return nil, handleError(err)
			}
			workingDir = p.Path
			// Re-check in case the allowlist changed since registration.
			if cfg.PathAllowed != nil && !cfg.PathAllowed(workingDir) {
				return nil, newAPIError(http.StatusForbidden, "Project path is no longer within allowed directories. Please re-register the project.")
			}
		}

		sessionArg := ""
		if req.SessionID != nil {
			sessionArg = *req.SessionID
		}
		sessionID, err := cfg.Sessions.GetOrCreate(sessionArg, workingDir)
		if err != nil {
			return nil, handleError(err)
		}

		task := cfg.Tasks.Create(sessionID)
		cfg.Tasks.Update(task.TaskID, func(t *domain.Task) { t.Status = domain.StatusRunning })

		res, err := cfg.Sessions.Execute(ctx, sessionID, req.Prompt)
		if err != nil {
			markFailed(cfg.Tasks, task.TaskID, err.Error())
			return nil, newAPIError(http.StatusInternalServerError, "Task execution failed: %v", err)
		}

		updated, _ := cfg.Tasks.Update(task.TaskID, func(t *domain.Task) {
			applyResult(t, res)
			t.Output = res.Output
		})
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-task",
		Method:      http.MethodGet,
		Path:        "/tasks/{task_id}",
		Summary:     "Get task status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TaskID        string `path:"task_id"`
		DiscordUserID string `query:"discord_user_id"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if cfg.isOrchestrator() {
			if input.DiscordUserID == "" {
				return nil, newAPIError(http.StatusBadRequest, "discord_user_id query parameter is required in orchestrator mode")
			}
			task, err := cfg.Router.GetTask(ctx, input.DiscordUserID, input.TaskID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Task `json:"body"`
			}{Body: task}, nil
		}

		task, ok := cfg.Tasks.Get(input.TaskID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "Task %s not found", input.TaskID)
		}
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: task}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks",
	}, func(ctx context.Context, input *struct {
		SessionID string `query:"session_id"`
	}) (*struct {
		Body []domain.Task `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Task `json:"body"`
		}{Body: cfg.Tasks.List(input.SessionID)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-approval",
		Method:      http.MethodPost,
		Path:        "/tasks/{task_id}/approve",
		Summary:     "Submit approval for a waiting task",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		TaskID        string                    `path:"task_id"`
		DiscordUserID string                    `query:"discord_user_id"`
		Body          domain.ApprovalSubmission `json:"body"`
	}) (*struct {
		Body domain.Task `json:"body"`
	}, error) {
		if cfg.isOrchestrator() {
			if input.DiscordUserID == "" {
				return nil, newAPIError(http.StatusBadRequest, "discord_user_id query parameter is required in orchestrator mode")
			}
			task, err := cfg.Router.SubmitApproval(ctx, input.DiscordUserID, input.TaskID, input.Body)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Task `json:"body"`
			}{Body: task}, nil
		}

		task, ok := cfg.Tasks.Get(input.TaskID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "Task %s not found", input.TaskID)
		}
		if task.Status != domain.StatusNeedsApproval {
			return nil, newAPIError(http.StatusBadRequest, "Task %s is not awaiting approval", input.TaskID)
		}

		cfg.Tasks.Update(input.TaskID, func(t *domain.Task) { t.Status = domain.StatusRunning })
		res, err := cfg.Sessions.SubmitApproval(ctx, task.SessionID, input.Body)
		if err != nil {
			markFailed(cfg.Tasks, input.TaskID, err.Error())
			return nil, newAPIError(http.StatusInternalServerError, "Approval processing failed: %v", err)
		}

		updated, _ := cfg.Tasks.Update(input.TaskID, func(t *domain.Task) {
			applyResult(t, res)
			t.Output = t.Output + "\n" + res.Output
		})
		return &struct {
			Body domain.Task `json:"body"`
		}{Body: updated}, nil
	})
}

func registerSessions(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/sessions",
		Summary:     "List active sessions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Session `json:"body"`
	}, error) {
		return &struct {
			Body []domain.Session `json:"body"`
		}{Body: cfg.Sessions.List()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{session_id}",
		Summary:     "Get session",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*struct {
		Body domain.Session `json:"body"`
	}, error) {
		s, ok := cfg.Sessions.Get(input.SessionID)
		if !ok {
			return nil, newAPIError(http.StatusNotFound, "Session %s not found", input.SessionID)
		}
		return &struct {
			Body domain.Session `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "terminate-session",
		Method:        http.MethodDelete,
		Path:          "/sessions/{session_id}",
		Summary:       "Terminate a session",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SessionID string `path:"session_id"`
	}) (*struct{}, error) {
		if !cfg.Sessions.Terminate(input.SessionID) {
			return nil, newAPIError(http.StatusNotFound, "Session %s not found", input.SessionID)
		}
		return &struct{}{}, nil
	})
}

func registerProjects(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-user-projects",
		Method:      http.MethodGet,
		Path:        "/projects/{discord_user_id}",
		Summary:     "List a user's projects",
	}, func(ctx context.Context, input *struct {
		DiscordUserID string `path:"discord_user_id"`
	}) (*struct {
		Body []domain.Project `json:"body"`
	}, error) {
		items, err := cfg.Projects.List(ctx, input.DiscordUserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Project `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Register a project",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body domain.ProjectRequest `json:"body"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "discord_user_id is required")
		}
		if input.Body.Name == "" || input.Body.Path == "" {
			return nil, newAPIError(http.StatusBadRequest, "name and path are required")
		}
		p, err := cfg.Projects.Create(ctx, input.Body)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "%s", err.Error())
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{discord_user_id}/{name}",
		Summary:     "Get a project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordUserID string `path:"discord_user_id"`
		Name          string `path:"name"`
	}) (*struct {
		Body domain.Project `json:"body"`
	}, error) {
		p, err := cfg.Projects.Get(ctx, input.DiscordUserID, input.Name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "Project '%s' not found", input.Name)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Project `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-project",
		Method:        http.MethodDelete,
		Path:          "/projects/{discord_user_id}/{name}",
		Summary:       "Remove a project",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordUserID string `path:"discord_user_id"`
		Name          string `path:"name"`
	}) (*struct{}, error) {
		err := cfg.Projects.Delete(ctx, input.DiscordUserID, input.Name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "Project '%s' not found", input.Name)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerUsers(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List registered users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.User `json:"body"`
	}, error) {
		users, err := cfg.Users.List(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		if users == nil {
			users = []domain.User{}
		}
		return &struct {
			Body []domain.User `json:"body"`
		}{Body: users}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user",
		Method:      http.MethodGet,
		Path:        "/users/{discord_id}",
		Summary:     "Get a user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordID string `path:"discord_id"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := cfg.Users.Get(ctx, input.DiscordID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "User '%s' not found", input.DiscordID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "register-local",
		Method:        http.MethodPost,
		Path:          "/users/register-local",
		Summary:       "Register a user's local wrapper",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body domain.RegisterLocalRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		if input.Body.DiscordID == "" || input.Body.WrapperURL == "" {
			return nil, newAPIError(http.StatusBadRequest, "discord_id and wrapper_url are required")
		}
		u, err := cfg.Users.RegisterLocal(ctx, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "enable-cluster",
		Method:        http.MethodPost,
		Path:          "/users/enable-cluster",
		Summary:       "Enable cluster access for a user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body domain.EnableClusterRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		if input.Body.DiscordID == "" {
			return nil, newAPIError(http.StatusBadRequest, "discord_id is required")
		}
		u, err := cfg.Users.EnableCluster(ctx, input.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-default-mode",
		Method:      http.MethodPost,
		Path:        "/users/{discord_id}/set-mode",
		Summary:     "Set a user's default execution mode",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordID string                `path:"discord_id"`
		Body      domain.SetModeRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := cfg.Users.SetDefaultMode(ctx, input.DiscordID, input.Body.Mode)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "User '%s' not found", input.DiscordID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "unregister-local",
		Method:        http.MethodDelete,
		Path:          "/users/{discord_id}/local",
		Summary:       "Unregister a user's local wrapper",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordID string `path:"discord_id"`
	}) (*struct{}, error) {
		err := cfg.Users.UnregisterLocal(ctx, input.DiscordID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "User '%s' not found", input.DiscordID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "disable-cluster",
		Method:        http.MethodDelete,
		Path:          "/users/{discord_id}/cluster",
		Summary:       "Disable cluster access for a user",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordID string `path:"discord_id"`
	}) (*struct{}, error) {
		err := cfg.Users.DisableCluster(ctx, input.DiscordID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "User '%s' not found", input.DiscordID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "remove-user",
		Method:        http.MethodDelete,
		Path:          "/users/{discord_id}",
		Summary:       "Remove a user",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordID string `path:"discord_id"`
	}) (*struct{}, error) {
		err := cfg.Users.Delete(ctx, input.DiscordID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "User '%s' not found", input.DiscordID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerShares(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID:   "share-wrapper",
		Method:        http.MethodPost,
		Path:          "/users/{discord_id}/share",
		Summary:       "Share wrapper access with another user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordID string              `path:"discord_id"`
		Body      domain.ShareRequest `json:"body"`
	}) (*struct {
		Body domain.ShareList `json:"body"`
	}, error) {
		if input.Body.TargetUserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "target_user_id is required")
		}
		shared, err := cfg.Users.Share(ctx, input.DiscordID, input.Body.TargetUserID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "User '%s' not found", input.DiscordID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ShareList `json:"body"`
		}{Body: domain.ShareList{SharedWith: shared}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unshare-wrapper",
		Method:      http.MethodDelete,
		Path:        "/users/{discord_id}/share/{target_id}",
		Summary:     "Revoke wrapper access from another user",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordID string `path:"discord_id"`
		TargetID  string `path:"target_id"`
	}) (*struct {
		Body domain.ShareList `json:"body"`
	}, error) {
		shared, err := cfg.Users.Unshare(ctx, input.DiscordID, input.TargetID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, newAPIError(http.StatusNotFound, "User '%s' not found or not shared with '%s'", input.DiscordID, input.TargetID)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ShareList `json:"body"`
		}{Body: domain.ShareList{SharedWith: shared}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-shares",
		Method:      http.MethodGet,
		Path:        "/users/{discord_id}/share",
		Summary:     "List users a wrapper is shared with",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		DiscordID string `path:"discord_id"`
	}) (*struct {
		Body domain.ShareList `json:"body"`
	}, error) {
		if _, err := cfg.Users.Get(ctx, input.DiscordID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, newAPIError(http.StatusNotFound, "User '%s' not found", input.DiscordID)
			}
			return nil, handleError(err)
		}
		shared, err := cfg.Users.SharedWith(ctx, input.DiscordID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ShareList `json:"body"`
		}{Body: domain.ShareList{SharedWith: shared}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accessible-wrappers",
		Method:      http.MethodGet,
		Path:        "/users/{discord_id}/accessible-wrappers",
		Summary:     "List wrappers a user can access",
	}, func(ctx context.Context, input *struct {
		DiscordID string `path:"discord_id"`
	}) (*struct {
		Body domain.AccessibleWrappers `json:"body"`
	}, error) {
		wrappers, err := cfg.Users.AccessibleWrappers(ctx, input.DiscordID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.AccessibleWrappers `json:"body"`
		}{Body: domain.AccessibleWrappers{Wrappers: wrappers}}, nil
	})
}
