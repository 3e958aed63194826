package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskrelay/internal/domain"
)

func TestTaskCreateAndUpdate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := NewTasks()
	tasks.Now = func() time.Time { return now }

	created := tasks.Create("s-1")
	require.NotEmpty(t, created.TaskID)
	require.Equal(t, domain.StatusPending, created.Status)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	now = now.Add(time.Minute)
	updated, ok := tasks.Update(created.TaskID, func(task *domain.Task) {
		task.Status = domain.StatusCompleted
		task.Output = "hi"
	})
	require.True(t, ok)
	require.Equal(t, domain.StatusCompleted, updated.Status)
	require.NotEqual(t, updated.CreatedAt, updated.UpdatedAt)

	_, ok = tasks.Update("missing", func(*domain.Task) {})
	require.False(t, ok)
}

func TestTaskListFiltersBySession(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tasks := NewTasks()
	tasks.Now = func() time.Time { return now }

	first := tasks.Create("s-1")
	now = now.Add(time.Second)
	second := tasks.Create("s-1")
	now = now.Add(time.Second)
	tasks.Create("s-2")

	listed := tasks.List("s-1")
	require.Len(t, listed, 2)
	// Newest first.
	require.Equal(t, second.TaskID, listed[0].TaskID)
	require.Equal(t, first.TaskID, listed[1].TaskID)

	require.Len(t, tasks.List(""), 3)
}
