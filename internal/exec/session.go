package exec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskrelay/internal/domain"
)

// Session statuses.
const (
	SessionActive           = "active"
	SessionAwaitingApproval = "awaiting_approval"
	SessionError            = "error"
)

type session struct {
	id             string
	workDir        string
	agentSessionID string
	taskCount      int
	createdAt      time.Time
	lastActivity   time.Time
	status         string
}

// Manager tracks live sessions and runs prompts through the Runner.
// Sessions are in-memory; a restart starts fresh.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	BaseDir string
	Runner  Runner
	Now     func() time.Time
	Log     *zap.Logger
}

func NewManager(baseDir string, runner Runner, log *zap.Logger) *Manager {
	return &Manager{
		sessions: map[string]*session{},
		BaseDir:  baseDir,
		Runner:   runner,
		Log:      log,
	}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// GetOrCreate returns the session with the given id, creating it when
// the id is empty or unknown. workDir overrides the default per-session
// directory when set.
func (m *Manager) GetOrCreate(sessionID, workDir string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		if s, ok := m.sessions[sessionID]; ok {
			if workDir != "" {
				s.workDir = workDir
			}
			return s.id, nil
		}
	}

	id := sessionID
	if id == "" {
		id = uuid.NewString()
	}
	dir := workDir
	if dir == "" {
		dir = filepath.Join(m.BaseDir, id)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}

	now := m.now()
	m.sessions[id] = &session{
		id:           id,
		workDir:      dir,
		createdAt:    now,
		lastActivity: now,
		status:       SessionActive,
	}
	if m.Log != nil {
		m.Log.Info("session created", zap.String("session_id", id), zap.String("dir", dir))
	}
	return id, nil
}

// Execute runs a prompt in a session. Continuations resume the agent's
// own session once one has been established.
func (m *Manager) Execute(ctx context.Context, sessionID, prompt string) (Result, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return Result{}, fmt.Errorf("session %s not found", sessionID)
	}
	s.taskCount++
	resume := ""
	if s.taskCount > 1 {
		resume = s.agentSessionID
	}
	workDir := s.workDir
	m.mu.Unlock()

	res, err := m.Runner.Run(ctx, prompt, workDir, resume)

	m.mu.Lock()
	defer m.mu.Unlock()
	s.lastActivity = m.now()
	if err != nil {
		s.status = SessionError
		return Result{}, err
	}
	if res.SessionID != "" {
		s.agentSessionID = res.SessionID
	}
	switch {
	case res.ApprovalRequest != nil:
		s.status = SessionAwaitingApproval
	case res.Failed:
		s.status = SessionError
	default:
		s.status = SessionActive
	}
	return res, nil
}

// SubmitApproval continues a session with the chosen option (or the
// custom response text when provided).
func (m *Manager) SubmitApproval(ctx context.Context, sessionID string, sub domain.ApprovalSubmission) (Result, error) {
	prompt := sub.OptionID
	if sub.CustomResponse != nil && *sub.CustomResponse != "" {
		prompt = *sub.CustomResponse
	}
	return m.Execute(ctx, sessionID, prompt)
}

// Get returns one session snapshot.
func (m *Manager) Get(sessionID string) (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return domain.Session{}, false
	}
	return snapshot(s), true
}

// List returns all session snapshots, newest first.
func (m *Manager) List() []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		res = append(res, snapshot(s))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt > res[j].CreatedAt })
	return res
}

// Terminate drops a session and its context.
func (m *Manager) Terminate(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return false
	}
	delete(m.sessions, sessionID)
	if m.Log != nil {
		m.Log.Info("session terminated", zap.String("session_id", sessionID))
	}
	return true
}

// CleanupStale drops sessions idle for longer than maxIdle and returns
// how many were removed.
func (m *Manager) CleanupStale(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for id, s := range m.sessions {
		if s.lastActivity.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func snapshot(s *session) domain.Session {
	return domain.Session{
		SessionID:    s.id,
		TaskCount:    s.taskCount,
		CreatedAt:    s.createdAt.Format(time.RFC3339),
		LastActivity: s.lastActivity.Format(time.RFC3339),
		Status:       s.status,
	}
}
