package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"taskrelay/internal/domain"
)

func TestProjectCreateNormalizesName(t *testing.T) {
	projects := Projects{DB: newTestDB(t)}
	dir := t.TempDir()

	p, err := projects.Create(context.Background(), domain.ProjectRequest{
		UserID: "u-1",
		Name:   "  My-API  ",
		Path:   dir,
	})
	require.NoError(t, err)
	require.Equal(t, "my-api", p.Name)
	require.Equal(t, dir, p.Path)

	// Lookup is case-insensitive via the same normalization.
	got, err := projects.Get(context.Background(), "u-1", "MY-API")
	require.NoError(t, err)
	require.Equal(t, p.Path, got.Path)
}

func TestProjectCreateRejectsBadPaths(t *testing.T) {
	projects := Projects{DB: newTestDB(t)}
	ctx := context.Background()

	_, err := projects.Create(ctx, domain.ProjectRequest{UserID: "u-1", Name: "x", Path: "/does/not/exist"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Path does not exist")

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = projects.Create(ctx, domain.ProjectRequest{UserID: "u-1", Name: "x", Path: file})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Path is not a directory")
}

func TestProjectAllowlist(t *testing.T) {
	allowed := t.TempDir()
	outside := t.TempDir()
	inside := filepath.Join(allowed, "svc")
	require.NoError(t, os.MkdirAll(inside, 0o755))

	projects := Projects{DB: newTestDB(t), AllowedDirs: []string{allowed}}
	ctx := context.Background()

	_, err := projects.Create(ctx, domain.ProjectRequest{UserID: "u-1", Name: "ok", Path: inside})
	require.NoError(t, err)

	_, err = projects.Create(ctx, domain.ProjectRequest{UserID: "u-1", Name: "nope", Path: outside})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not within allowed directories")
}

func TestProjectDuplicatePerOwner(t *testing.T) {
	projects := Projects{DB: newTestDB(t)}
	ctx := context.Background()
	dir := t.TempDir()

	_, err := projects.Create(ctx, domain.ProjectRequest{UserID: "u-1", Name: "api", Path: dir})
	require.NoError(t, err)

	_, err = projects.Create(ctx, domain.ProjectRequest{UserID: "u-1", Name: "API", Path: dir})
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists for your account")

	// Same name under a different owner is fine.
	_, err = projects.Create(ctx, domain.ProjectRequest{UserID: "u-2", Name: "api", Path: dir})
	require.NoError(t, err)
}

func TestProjectListAndDelete(t *testing.T) {
	projects := Projects{DB: newTestDB(t)}
	ctx := context.Background()

	_, err := projects.Create(ctx, domain.ProjectRequest{UserID: "u-1", Name: "beta", Path: t.TempDir()})
	require.NoError(t, err)
	_, err = projects.Create(ctx, domain.ProjectRequest{UserID: "u-1", Name: "alpha", Path: t.TempDir()})
	require.NoError(t, err)

	items, err := projects.List(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "alpha", items[0].Name)

	require.NoError(t, projects.Delete(ctx, "u-1", "alpha"))
	require.ErrorIs(t, projects.Delete(ctx, "u-1", "alpha"), ErrNotFound)

	items, err = projects.List(ctx, "u-2")
	require.NoError(t, err)
	require.Empty(t, items)
}
