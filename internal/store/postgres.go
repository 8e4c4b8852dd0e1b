package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"scopilot/api/internal/scoping"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role, is_external)
		VALUES ($1, $2, LOWER($3), $4, $5, $6)
		RETURNING id, display_name, email, role, is_external, created_at, updated_at
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.IsExternal).
		Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role, &user.IsExternal, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, is_external, deactivated_at
		FROM users
		WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &user.IsExternal, &user.DeactivatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role, is_external, deactivated_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role, &user.IsExternal, &user.DeactivatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1
	`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(result, "update password")
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email, u.role, u.is_external
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
			AND u.deactivated_at IS NULL
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email, &user.Role, &user.IsExternal)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// ListProjects returns dashboard summaries, newest activity first. With
// includeAll (admin views) the owner filter is dropped.
func (s *PostgresStore) ListProjects(ctx context.Context, ownerID string, includeAll bool) ([]ProjectSummary, error) {
	const query = `
		SELECT p.id, p.name, p.description, p.owner_id, COALESCE(u.display_name, ''), p.current_phase, p.created_at, p.updated_at
		FROM projects p
		LEFT JOIN users u ON u.id = p.owner_id
		WHERE $2 OR p.owner_id = $1
		ORDER BY p.updated_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID, includeAll)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items := make([]ProjectSummary, 0)
	for rows.Next() {
		var item ProjectSummary
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.OwnerID, &item.OwnerName, &item.CurrentPhase, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project summary: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (scoping.Project, error) {
	var (
		project scoping.Project
		blob    []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, current_phase, data, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, projectID).Scan(&project.ID, &project.Name, &project.Description, &project.OwnerID, &project.CurrentPhase, &blob, &project.CreatedAt, &project.UpdatedAt)
	if err != nil {
		return scoping.Project{}, err
	}
	if err := json.Unmarshal(blob, &project.Data); err != nil {
		return scoping.Project{}, fmt.Errorf("decode project data: %w", err)
	}
	return project, nil
}

func (s *PostgresStore) InsertProject(ctx context.Context, project scoping.Project) error {
	blob, err := json.Marshal(project.Data)
	if err != nil {
		return fmt.Errorf("encode project data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, owner_id, current_phase, data, section_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, project.ID, project.Name, project.Description, project.OwnerID, project.CurrentPhase, blob, scoping.SearchText(project.Data))
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// UpdateProjectData rewrites the whole blob, refreshing the flattened section
// text the search vector is generated from. Concurrent writers race at
// document granularity and the last write wins.
func (s *PostgresStore) UpdateProjectData(ctx context.Context, projectID string, currentPhase scoping.Phase, data scoping.ProjectData) error {
	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode project data: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET data=$2, current_phase=$3, section_text=$4, updated_at=NOW()
		WHERE id=$1
	`, projectID, blob, currentPhase, scoping.SearchText(data))
	if err != nil {
		return fmt.Errorf("update project data: %w", err)
	}
	return requireRow(result, "update project data")
}

func (s *PostgresStore) UpdateProjectDetails(ctx context.Context, projectID, name, description string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects
		SET name=$2, description=$3, updated_at=NOW()
		WHERE id=$1
	`, projectID, name, description)
	if err != nil {
		return fmt.Errorf("update project details: %w", err)
	}
	return requireRow(result, "update project details")
}

func (s *PostgresStore) DeleteProject(ctx context.Context, projectID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireRow(result, "delete project")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func requireRow(result sql.Result, verb string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", verb, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
