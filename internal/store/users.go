package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskrelay/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Users is the sqlite-backed user registry, including sharing relations.
type Users struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s Users) now() string {
	if s.Now != nil {
		return s.Now().UTC().Format(time.RFC3339)
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func nullable(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

const userCols = `discord_id,discord_name,local_wrapper_url,cluster_enabled,cluster_storage_path,default_mode,created_at,last_seen`

func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var u domain.User
	var wrapperURL, storagePath sql.NullString
	var clusterEnabled int
	err := scan(&u.DiscordID, &u.DiscordName, &wrapperURL, &clusterEnabled, &storagePath, &u.DefaultMode, &u.CreatedAt, &u.LastSeen)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	if wrapperURL.Valid {
		u.LocalWrapperURL = &wrapperURL.String
	}
	if storagePath.Valid {
		u.ClusterStoragePath = &storagePath.String
	}
	u.ClusterEnabled = clusterEnabled != 0
	return u, nil
}

// RegisterLocal upserts a user's local wrapper registration.
func (s Users) RegisterLocal(ctx context.Context, req domain.RegisterLocalRequest) (domain.User, error) {
	ts := s.now()
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users(discord_id,discord_name,local_wrapper_url,local_auth_token,default_mode,created_at,last_seen)
		VALUES (?,?,?,?,'local',?,?)
		ON CONFLICT(discord_id) DO UPDATE SET discord_name=excluded.discord_name, local_wrapper_url=excluded.local_wrapper_url,
			local_auth_token=excluded.local_auth_token, last_seen=excluded.last_seen`,
		req.DiscordID, req.DiscordName, req.WrapperURL, nullable(req.AuthToken), ts, ts)
	if err != nil {
		return domain.User{}, err
	}
	return s.Get(ctx, req.DiscordID)
}

// EnableCluster enables cluster execution for a user, creating the record
// if needed. An empty storage path gets a per-user default.
func (s Users) EnableCluster(ctx context.Context, req domain.EnableClusterRequest) (domain.User, error) {
	storage := fmt.Sprintf("/nfs/users/%s", req.DiscordID)
	if req.StoragePath != nil && *req.StoragePath != "" {
		storage = *req.StoragePath
	}
	ts := s.now()
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users(discord_id,discord_name,cluster_enabled,cluster_storage_path,default_mode,created_at,last_seen)
		VALUES (?,?,1,?,'local',?,?)
		ON CONFLICT(discord_id) DO UPDATE SET discord_name=excluded.discord_name, cluster_enabled=1,
			cluster_storage_path=excluded.cluster_storage_path, last_seen=excluded.last_seen`,
		req.DiscordID, req.DiscordName, storage, ts, ts)
	if err != nil {
		return domain.User{}, err
	}
	return s.Get(ctx, req.DiscordID)
}

// Get fetches a user and bumps last_seen.
func (s Users) Get(ctx context.Context, discordID string) (domain.User, error) {
	if _, err := s.DB.ExecContext(ctx, `UPDATE users SET last_seen=? WHERE discord_id=?`, s.now(), discordID); err != nil {
		return domain.User{}, err
	}
	row := s.DB.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE discord_id=?`, discordID)
	return scanUser(row.Scan)
}

// List returns all registered users.
func (s Users) List(ctx context.Context) ([]domain.User, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+userCols+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// Delete removes a user entirely.
func (s Users) Delete(ctx context.Context, discordID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE discord_id=?`, discordID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UnregisterLocal clears a user's local wrapper registration.
func (s Users) UnregisterLocal(ctx context.Context, discordID string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET local_wrapper_url=NULL, local_auth_token=NULL, last_seen=? WHERE discord_id=?`,
		s.now(), discordID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DisableCluster clears a user's cluster access.
func (s Users) DisableCluster(ctx context.Context, discordID string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET cluster_enabled=0, cluster_storage_path=NULL, last_seen=? WHERE discord_id=?`,
		s.now(), discordID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDefaultMode updates a user's default execution mode.
func (s Users) SetDefaultMode(ctx context.Context, discordID string, mode domain.ExecutionMode) (domain.User, error) {
	if mode != domain.ModeLocal && mode != domain.ModeCluster {
		return domain.User{}, fmt.Errorf("invalid mode: %s", mode)
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET default_mode=?, last_seen=? WHERE discord_id=?`, string(mode), s.now(), discordID)
	if err != nil {
		return domain.User{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.User{}, ErrNotFound
	}
	return s.Get(ctx, discordID)
}

// LocalAuthToken returns the stored auth token for a user's wrapper, if any.
func (s Users) LocalAuthToken(ctx context.Context, discordID string) (string, error) {
	var token sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT local_auth_token FROM users WHERE discord_id=?`, discordID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return token.String, nil
}

// Share grants target access to owner's wrapper. Idempotent.
func (s Users) Share(ctx context.Context, ownerID, targetID string) ([]string, error) {
	var exists int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE discord_id=?`, ownerID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrNotFound
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO shares(owner_id,target_id,created_at) VALUES (?,?,?)
		ON CONFLICT(owner_id,target_id) DO NOTHING`, ownerID, targetID, s.now())
	if err != nil {
		return nil, err
	}
	return s.SharedWith(ctx, ownerID)
}

// Unshare revokes target's access to owner's wrapper.
func (s Users) Unshare(ctx context.Context, ownerID, targetID string) ([]string, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM shares WHERE owner_id=? AND target_id=?`, ownerID, targetID)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.SharedWith(ctx, ownerID)
}

// SharedWith lists the users an owner has granted access to.
func (s Users) SharedWith(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT target_id FROM shares WHERE owner_id=? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

// CanAccess reports whether requester may use owner's wrapper. A user
// always has access to their own.
func (s Users) CanAccess(ctx context.Context, ownerID, requesterID string) (bool, error) {
	if ownerID == requesterID {
		return true, nil
	}
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM shares WHERE owner_id=? AND target_id=?`, ownerID, requesterID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AccessibleWrappers lists wrappers the requester may submit tasks
// against: their own (when registered) plus any shared with them.
func (s Users) AccessibleWrappers(ctx context.Context, requesterID string) ([]domain.AccessibleWrapper, error) {
	res := []domain.AccessibleWrapper{}

	own, err := s.Get(ctx, requesterID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err == nil && own.LocalWrapperURL != nil {
		res = append(res, domain.AccessibleWrapper{OwnerID: own.DiscordID, OwnerName: own.DiscordName, IsOwn: true})
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT u.discord_id, u.discord_name FROM shares sh
		JOIN users u ON u.discord_id = sh.owner_id
		WHERE sh.target_id=? AND u.local_wrapper_url IS NOT NULL
		ORDER BY sh.created_at`, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var w domain.AccessibleWrapper
		if err := rows.Scan(&w.OwnerID, &w.OwnerName); err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, rows.Err()
}
