// Package postgres provides the PostgreSQL storage backend and its
// optional Redis read-cache layer.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/docshelf/docshelf/pkg/registry"
	"github.com/docshelf/docshelf/pkg/storage"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// PostgresStore implements storage.Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id BIGSERIAL PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	logo TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS versions (
	id BIGSERIAL PRIMARY KEY,
	project_id BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	UNIQUE(project_id, name)
);

CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS api_keys (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	key TEXT NOT NULL UNIQUE,
	is_valid BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS roles (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role_name TEXT NOT NULL,
	project_code TEXT NOT NULL,
	UNIQUE(user_id, role_name, project_code)
);

CREATE INDEX IF NOT EXISTS idx_versions_project_id ON versions(project_id);
CREATE INDEX IF NOT EXISTS idx_api_keys_key ON api_keys(key);
CREATE INDEX IF NOT EXISTS idx_roles_user_id ON roles(user_id);
`

// NewPostgresStore connects to PostgreSQL, configures the pool per the
// storage config, verifies connectivity and applies the schema.
func NewPostgresStore(cfg storage.Config) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.PostgresMaxConns)
	db.SetMaxIdleConns(cfg.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection, used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// CreateProject implements storage.Store.CreateProject
func (s *PostgresStore) CreateProject(ctx context.Context, project *registry.Project) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO projects (code, title, description, logo) VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		project.Name, project.Title, project.Description, project.Logo,
	).Scan(&project.CreatedAt, &project.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", registry.ErrDuplicateProject, project.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	if project.Versions == nil {
		project.Versions = []registry.Version{}
	}
	return nil
}

// GetProject implements storage.Store.GetProject
func (s *PostgresStore) GetProject(ctx context.Context, code string) (*registry.Project, error) {
	var id int64
	var project registry.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, code, title, description, logo, created_at, updated_at FROM projects WHERE code = $1`, code).
		Scan(&id, &project.Name, &project.Title, &project.Description,
			&project.Logo, &project.CreatedAt, &project.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, registry.NewProjectNotFoundError(code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	versions, err := s.loadVersions(ctx, id)
	if err != nil {
		return nil, err
	}
	project.Versions = versions
	return &project, nil
}

func (s *PostgresStore) loadVersions(ctx context.Context, projectID int64) ([]registry.Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, url FROM versions WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	versions := []registry.Version{}
	for rows.Next() {
		var v registry.Version
		if err := rows.Scan(&v.Name, &v.URL); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return registry.SortVersions(versions), nil
}

// ListProjects implements storage.Store.ListProjects
func (s *PostgresStore) ListProjects(ctx context.Context) ([]*registry.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, title, description, logo, created_at, updated_at FROM projects ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	type record struct {
		id      int64
		project *registry.Project
	}
	var records []record
	for rows.Next() {
		var id int64
		var project registry.Project
		if err := rows.Scan(&id, &project.Name, &project.Title, &project.Description,
			&project.Logo, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		records = append(records, record{id: id, project: &project})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	projects := make([]*registry.Project, 0, len(records))
	for _, r := range records {
		versions, err := s.loadVersions(ctx, r.id)
		if err != nil {
			return nil, err
		}
		r.project.Versions = versions
		projects = append(projects, r.project)
	}
	return projects, nil
}

// UpdateProject implements storage.Store.UpdateProject
func (s *PostgresStore) UpdateProject(ctx context.Context, code string, update registry.ProjectUpdate) (*registry.Project, error) {
	if update.IsEmpty() {
		return nil, registry.ErrNoFieldsToUpdate
	}

	query := `UPDATE projects SET updated_at = NOW()`
	args := []interface{}{}
	arg := 1
	if update.Title != nil {
		query += fmt.Sprintf(`, title = $%d`, arg)
		args = append(args, *update.Title)
		arg++
	}
	if update.Description != nil {
		query += fmt.Sprintf(`, description = $%d`, arg)
		args = append(args, *update.Description)
		arg++
	}
	if update.Logo != nil {
		query += fmt.Sprintf(`, logo = $%d`, arg)
		args = append(args, *update.Logo)
		arg++
	}
	query += fmt.Sprintf(` WHERE code = $%d`, arg)
	args = append(args, code)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, registry.NewProjectNotFoundError(code)
	}
	return s.GetProject(ctx, code)
}

// DeleteProject implements storage.Store.DeleteProject. The version rows
// go with the project through the foreign-key cascade.
func (s *PostgresStore) DeleteProject(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE code = $1`, code); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func (s *PostgresStore) projectID(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM projects WHERE code = $1`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, registry.NewProjectNotFoundError(code)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up project: %w", err)
	}
	return id, nil
}

// AddVersion implements storage.Store.AddVersion. Two racing inserts of
// the same name resolve through the unique constraint: one succeeds, the
// other maps to a duplicate-version conflict.
func (s *PostgresStore) AddVersion(ctx context.Context, code string, version registry.Version) (*registry.Project, error) {
	id, err := s.projectID(ctx, code)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO versions (project_id, name, url) VALUES ($1, $2, $3)`,
		id, version.Name, version.URL)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s/%s", registry.ErrDuplicateVersion, code, version.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add version: %w", err)
	}
	s.touchProject(ctx, id)
	return s.GetProject(ctx, code)
}

// UpdateVersion implements storage.Store.UpdateVersion
func (s *PostgresStore) UpdateVersion(ctx context.Context, code, name, newURL string) (*registry.Project, error) {
	id, err := s.projectID(ctx, code)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE versions SET url = $1 WHERE project_id = $2 AND name = $3`, newURL, id, name)
	if err != nil {
		return nil, fmt.Errorf("failed to update version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, registry.NewVersionNotFoundError(code, name)
	}
	s.touchProject(ctx, id)
	return s.GetProject(ctx, code)
}

// RemoveVersion implements storage.Store.RemoveVersion
func (s *PostgresStore) RemoveVersion(ctx context.Context, code, name string) (*registry.Project, error) {
	id, err := s.projectID(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM versions WHERE project_id = $1 AND name = $2`, id, name); err != nil {
		return nil, fmt.Errorf("failed to remove version: %w", err)
	}
	s.touchProject(ctx, id)
	return s.GetProject(ctx, code)
}

func (s *PostgresStore) touchProject(ctx context.Context, id int64) {
	_, _ = s.db.ExecContext(ctx, `UPDATE projects SET updated_at = NOW() WHERE id = $1`, id)
}

// CreateUser implements storage.Store.CreateUser
func (s *PostgresStore) CreateUser(ctx context.Context, user *registry.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (name, is_admin) VALUES ($1, $2) RETURNING id, created_at`,
		user.Name, user.IsAdmin).Scan(&userID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", registry.ErrDuplicateUser, user.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	for i := range user.APIKeys {
		key := &user.APIKeys[i]
		err := tx.QueryRowContext(ctx,
			`INSERT INTO api_keys (user_id, key, is_valid) VALUES ($1, $2, $3) RETURNING created_at`,
			userID, key.Key, key.IsValid).Scan(&key.CreatedAt)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: api key collision", registry.ErrDuplicateUser)
		}
		if err != nil {
			return fmt.Errorf("failed to store api key: %w", err)
		}
	}

	return tx.Commit()
}

// GetUser implements storage.Store.GetUser
func (s *PostgresStore) GetUser(ctx context.Context, name string) (*registry.User, error) {
	var id int64
	var user registry.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_admin, created_at FROM users WHERE name = $1`, name).
		Scan(&id, &user.Name, &user.IsAdmin, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, registry.NewUserNotFoundError(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.loadUserDetails(ctx, id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *PostgresStore) loadUserDetails(ctx context.Context, userID int64, user *registry.User) error {
	keyRows, err := s.db.QueryContext(ctx,
		`SELECT key, is_valid, created_at FROM api_keys WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return fmt.Errorf("failed to list api keys: %w", err)
	}
	defer keyRows.Close()

	user.APIKeys = []registry.APIKey{}
	for keyRows.Next() {
		var k registry.APIKey
		if err := keyRows.Scan(&k.Key, &k.IsValid, &k.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan api key: %w", err)
		}
		user.APIKeys = append(user.APIKeys, k)
	}
	if err := keyRows.Err(); err != nil {
		return err
	}

	roleRows, err := s.db.QueryContext(ctx,
		`SELECT role_name, project_code FROM roles WHERE user_id = $1 ORDER BY project_code, role_name`, userID)
	if err != nil {
		return fmt.Errorf("failed to list roles: %w", err)
	}
	defer roleRows.Close()

	user.Roles = []registry.Role{}
	for roleRows.Next() {
		var r registry.Role
		if err := roleRows.Scan(&r.RoleName, &r.ProjectCode); err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}
		user.Roles = append(user.Roles, r)
	}
	return roleRows.Err()
}

// ListUsers implements storage.Store.ListUsers
func (s *PostgresStore) ListUsers(ctx context.Context) ([]*registry.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, is_admin, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	type record struct {
		id   int64
		user *registry.User
	}
	var records []record
	for rows.Next() {
		var id int64
		var user registry.User
		if err := rows.Scan(&id, &user.Name, &user.IsAdmin, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		records = append(records, record{id: id, user: &user})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]*registry.User, 0, len(records))
	for _, r := range records {
		if err := s.loadUserDetails(ctx, r.id, r.user); err != nil {
			return nil, err
		}
		users = append(users, r.user)
	}
	return users, nil
}

// GetUserForAPIKey implements storage.Store.GetUserForAPIKey
func (s *PostgresStore) GetUserForAPIKey(ctx context.Context, key string) (*registry.User, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT u.name FROM users u JOIN api_keys k ON k.user_id = u.id WHERE k.key = $1 AND k.is_valid = TRUE`, key).
		Scan(&name)
	if err == sql.ErrNoRows {
		return nil, registry.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}
	return s.GetUser(ctx, name)
}

func userIDTx(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, registry.NewUserNotFoundError(name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}
	return id, nil
}

// AddRoles implements storage.Store.AddRoles: all-or-nothing within one
// transaction, already-held roles skipped via ON CONFLICT DO NOTHING.
func (s *PostgresStore) AddRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userID, err := userIDTx(ctx, tx, userName)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE code = $1`, role.ProjectCode).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, registry.NewProjectNotFoundError(role.ProjectCode)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up project: %w", err)
		}
	}

	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO roles (user_id, role_name, project_code) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, role_name, project_code) DO NOTHING`,
			userID, role.RoleName, role.ProjectCode); err != nil {
			return nil, fmt.Errorf("failed to add role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userName)
}

// RemoveRoles implements storage.Store.RemoveRoles
func (s *PostgresStore) RemoveRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userID, err := userIDTx(ctx, tx, userName)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM roles WHERE user_id = $1 AND role_name = $2 AND project_code = $3`,
			userID, role.RoleName, role.ProjectCode); err != nil {
			return nil, fmt.Errorf("failed to remove role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userName)
}

// HasRole implements storage.Store.HasRole
func (s *PostgresStore) HasRole(ctx context.Context, userName string, role registry.Role) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM roles r JOIN users u ON r.user_id = u.id
		 WHERE u.name = $1 AND r.role_name = $2 AND r.project_code = $3`,
		userName, role.RoleName, role.ProjectCode).Scan(&exists)
	if err == sql.ErrNoRows {
		var id int64
		uerr := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE name = $1`, userName).Scan(&id)
		if uerr == sql.ErrNoRows {
			return false, registry.NewUserNotFoundError(userName)
		}
		if uerr != nil {
			return false, fmt.Errorf("failed to look up user: %w", uerr)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return true, nil
}

// Ping implements storage.Store.Ping
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements storage.Store.Close
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
