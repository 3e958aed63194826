package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	osexec "os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskrelay/internal/domain"
)

const defaultTimeout = 300 * time.Second

// Result is one executor run outcome.
type Result struct {
	Output          string
	SessionID       string
	ApprovalRequest *domain.ApprovalRequest
	Failed          bool
	Error           string
}

// Runner executes one prompt in a working directory. Implementations
// must be safe for concurrent use.
type Runner interface {
	Run(ctx context.Context, prompt, workDir, resumeSessionID string) (Result, error)
}

// CLIRunner shells out to the agent CLI in headless JSON mode.
type CLIRunner struct {
	Command string // defaults to "claude"
	Timeout time.Duration
	Log     *zap.Logger
}

type cliResult struct {
	Result          string                  `json:"result"`
	Output          string                  `json:"output"`
	SessionID       string                  `json:"session_id"`
	NeedsApproval   bool                    `json:"needs_approval"`
	ApprovalRequest *domain.ApprovalRequest `json:"approval_request"`
}

func (r *CLIRunner) command() string {
	if r.Command != "" {
		return r.Command
	}
	return "claude"
}

func (r *CLIRunner) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultTimeout
}

func (r *CLIRunner) Run(ctx context.Context, prompt, workDir, resumeSessionID string) (Result, error) {
	args := []string{"-p", prompt, "--output-format", "json"}
	if resumeSessionID != "" {
		args = append(args, "--resume", resumeSessionID)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	cmd := osexec.CommandContext(runCtx, r.command(), args...)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if r.Log != nil {
		r.Log.Debug("running agent command", zap.String("dir", workDir), zap.Bool("resume", resumeSessionID != ""))
	}

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{Failed: true, Error: fmt.Sprintf("execution timed out after %s", r.timeout())}, nil
	}
	if err != nil {
		var execErr *osexec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, osexec.ErrNotFound) {
			return Result{Failed: true, Error: fmt.Sprintf("%s CLI not found. Install it and make sure it is on PATH.", r.command())}, nil
		}
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return Result{Failed: true, Error: msg}, nil
		}
		return Result{}, fmt.Errorf("run agent command: %w", err)
	}

	return parseOutput(stdout.String()), nil
}

// parseOutput decodes the CLI's JSON result. Non-JSON output is treated
// as a successful plain-text run.
func parseOutput(raw string) Result {
	var parsed cliResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return Result{Output: strings.TrimSpace(raw)}
	}
	output := parsed.Result
	if output == "" {
		output = parsed.Output
	}
	res := Result{
		Output:    output,
		SessionID: parsed.SessionID,
	}
	if parsed.NeedsApproval {
		res.ApprovalRequest = parsed.ApprovalRequest
	}
	return res
}
