package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskrelay/internal/domain"
)

// Tasks holds transient task records in memory. Tasks live only as long
// as the process; durable state belongs to the user/project registries.
type Tasks struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	Now   func() time.Time
}

func NewTasks() *Tasks {
	return &Tasks{tasks: map[string]domain.Task{}}
}

func (s *Tasks) now() string {
	if s.Now != nil {
		return s.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

// Create records a new pending task in a session.
func (s *Tasks) Create(sessionID string) domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now()
	t := domain.Task{
		TaskID:    uuid.NewString(),
		SessionID: sessionID,
		Status:    domain.StatusPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	s.tasks[t.TaskID] = t
	return t
}

// Get returns a task snapshot by id.
func (s *Tasks) Get(taskID string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	return t, ok
}

// Update applies fn to the stored task and bumps updated_at.
func (s *Tasks) Update(taskID string, fn func(*domain.Task)) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return domain.Task{}, false
	}
	fn(&t)
	t.UpdatedAt = s.now()
	s.tasks[taskID] = t
	return t, true
}

// List returns tasks newest first, optionally filtered by session.
func (s *Tasks) List(sessionID string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := []domain.Task{}
	for _, t := range s.tasks {
		if sessionID != "" && t.SessionID != sessionID {
			continue
		}
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt > res[j].CreatedAt })
	return res
}
