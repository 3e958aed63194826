package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskrelay/internal/domain"
)

// Projects is the sqlite-backed per-user project registry. Names are
// normalized (lowercased, trimmed) and unique per owner.
type Projects struct {
	DB *sql.DB
	// AllowedDirs restricts where project paths may live. Empty means
	// no restriction.
	AllowedDirs []string
	Now         func() time.Time
}

func (s Projects) now() string {
	if s.Now != nil {
		return s.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s Projects) validatePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %s", path)
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("Path does not exist: %s", abs)
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("Path is not a directory: %s", abs)
	}
	if len(s.AllowedDirs) > 0 {
		allowed := false
		for _, dir := range s.AllowedDirs {
			rel, err := filepath.Rel(dir, abs)
			if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", fmt.Errorf("Path '%s' is not within allowed directories. Allowed: %s",
				abs, strings.Join(s.AllowedDirs, ", "))
		}
	}
	return abs, nil
}

// Create registers a project after validating its path.
func (s Projects) Create(ctx context.Context, req domain.ProjectRequest) (domain.Project, error) {
	name := normalizeName(req.Name)
	path, err := s.validatePath(req.Path)
	if err != nil {
		return domain.Project{}, err
	}

	desc := ""
	if req.Description != nil {
		desc = *req.Description
	}
	p := domain.Project{
		Name:        name,
		Path:        path,
		Description: desc,
		OwnerID:     req.UserID,
		CreatedAt:   s.now(),
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO projects(owner_id,name,path,description,created_at) VALUES (?,?,?,?,?)`,
		p.OwnerID, p.Name, p.Path, p.Description, p.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "constraint") {
			return domain.Project{}, fmt.Errorf("Project '%s' already exists for your account", name)
		}
		return domain.Project{}, err
	}
	return p, nil
}

// Get fetches one project by owner and name.
func (s Projects) Get(ctx context.Context, ownerID, name string) (domain.Project, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT owner_id,name,path,COALESCE(description,''),created_at FROM projects WHERE owner_id=? AND name=?`,
		ownerID, normalizeName(name))
	var p domain.Project
	err := row.Scan(&p.OwnerID, &p.Name, &p.Path, &p.Description, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// List returns the projects owned by a user.
func (s Projects) List(ctx context.Context, ownerID string) ([]domain.Project, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT owner_id,name,path,COALESCE(description,''),created_at FROM projects WHERE owner_id=? ORDER BY name`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.OwnerID, &p.Name, &p.Path, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Delete removes a project by name.
func (s Projects) Delete(ctx context.Context, ownerID, name string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM projects WHERE owner_id=? AND name=?`, ownerID, normalizeName(name))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
