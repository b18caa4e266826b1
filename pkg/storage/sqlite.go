package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/docshelf/docshelf/pkg/registry"
)

// SQLiteStore implements Store on an embedded SQLite database. This is
// the default backend and mirrors the single-file deployments the
// service is typically run with.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	logo TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	UNIQUE(project_id, name)
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	is_admin BOOLEAN NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS api_keys (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	key TEXT NOT NULL UNIQUE,
	is_valid BOOLEAN NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS roles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role_name TEXT NOT NULL,
	project_code TEXT NOT NULL,
	UNIQUE(user_id, role_name, project_code)
);

CREATE INDEX IF NOT EXISTS idx_versions_project_id ON versions(project_id);
CREATE INDEX IF NOT EXISTS idx_api_keys_key ON api_keys(key);
CREATE INDEX IF NOT EXISTS idx_roles_user_id ON roles(user_id);
`

// NewSQLiteStore opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// sqlite has a single writer; a second connection would just block.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// CreateProject implements Store.CreateProject
func (s *SQLiteStore) CreateProject(ctx context.Context, project *registry.Project) error {
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (code, title, description, logo, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		project.Name, project.Title, project.Description, project.Logo, project.CreatedAt, project.UpdatedAt,
	)
	if isSQLiteUniqueViolation(err) {
		return fmt.Errorf("%w: %s", registry.ErrDuplicateProject, project.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject implements Store.GetProject
func (s *SQLiteStore) GetProject(ctx context.Context, code string) (*registry.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, code, title, description, logo, created_at, updated_at FROM projects WHERE code = ?`, code)
	return s.scanProject(ctx, row, code)
}

func (s *SQLiteStore) scanProject(ctx context.Context, row *sql.Row, code string) (*registry.Project, error) {
	var id int64
	var project registry.Project
	err := row.Scan(&id, &project.Name, &project.Title, &project.Description,
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

func (s *SQLiteStore) loadVersions(ctx context.Context, projectID int64) ([]registry.Version, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, url FROM versions WHERE project_id = ?`, projectID)
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

// ListProjects implements Store.ListProjects
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*registry.Project, error) {
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

// UpdateProject implements Store.UpdateProject
func (s *SQLiteStore) UpdateProject(ctx context.Context, code string, update registry.ProjectUpdate) (*registry.Project, error) {
	if update.IsEmpty() {
		return nil, registry.ErrNoFieldsToUpdate
	}

	query := `UPDATE projects SET updated_at = ?`
	args := []interface{}{time.Now().UTC()}
	if update.Title != nil {
		query += `, title = ?`
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		query += `, description = ?`
		args = append(args, *update.Description)
	}
	if update.Logo != nil {
		query += `, logo = ?`
		args = append(args, *update.Logo)
	}
	query += ` WHERE code = ?`
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

// DeleteProject implements Store.DeleteProject. Versions go with the
// project through the foreign-key cascade; deleting an absent project
// succeeds silently.
func (s *SQLiteStore) DeleteProject(ctx context.Context, code string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE code = ?`, code); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) projectID(ctx context.Context, code string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM projects WHERE code = ?`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, registry.NewProjectNotFoundError(code)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up project: %w", err)
	}
	return id, nil
}

// AddVersion implements Store.AddVersion
func (s *SQLiteStore) AddVersion(ctx context.Context, code string, version registry.Version) (*registry.Project, error) {
	id, err := s.projectID(ctx, code)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO versions (project_id, name, url) VALUES (?, ?, ?)`,
		id, version.Name, version.URL)
	if isSQLiteUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s/%s", registry.ErrDuplicateVersion, code, version.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add version: %w", err)
	}
	s.touchProject(ctx, id)
	return s.GetProject(ctx, code)
}

// UpdateVersion implements Store.UpdateVersion
func (s *SQLiteStore) UpdateVersion(ctx context.Context, code, name, newURL string) (*registry.Project, error) {
	id, err := s.projectID(ctx, code)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE versions SET url = ? WHERE project_id = ? AND name = ?`, newURL, id, name)
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

// RemoveVersion implements Store.RemoveVersion. Removing an absent
// version name is a no-op.
func (s *SQLiteStore) RemoveVersion(ctx context.Context, code, name string) (*registry.Project, error) {
	id, err := s.projectID(ctx, code)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM versions WHERE project_id = ? AND name = ?`, id, name); err != nil {
		return nil, fmt.Errorf("failed to remove version: %w", err)
	}
	s.touchProject(ctx, id)
	return s.GetProject(ctx, code)
}

func (s *SQLiteStore) touchProject(ctx context.Context, id int64) {
	_, _ = s.db.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
}

// CreateUser implements Store.CreateUser, persisting the user together
// with any attached API keys in one transaction.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *registry.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (name, is_admin, created_at) VALUES (?, ?, ?)`,
		user.Name, user.IsAdmin, user.CreatedAt)
	if isSQLiteUniqueViolation(err) {
		return fmt.Errorf("%w: %s", registry.ErrDuplicateUser, user.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	userID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, key := range user.APIKeys {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO api_keys (user_id, key, is_valid, created_at) VALUES (?, ?, ?, ?)`,
			userID, key.Key, key.IsValid, key.CreatedAt)
		if isSQLiteUniqueViolation(err) {
			return fmt.Errorf("%w: api key collision", registry.ErrDuplicateUser)
		}
		if err != nil {
			return fmt.Errorf("failed to store api key: %w", err)
		}
	}

	return tx.Commit()
}

// GetUser implements Store.GetUser
func (s *SQLiteStore) GetUser(ctx context.Context, name string) (*registry.User, error) {
	var id int64
	var user registry.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, is_admin, created_at FROM users WHERE name = ?`, name).
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

func (s *SQLiteStore) loadUserDetails(ctx context.Context, userID int64, user *registry.User) error {
	keyRows, err := s.db.QueryContext(ctx,
		`SELECT key, is_valid, created_at FROM api_keys WHERE user_id = ? ORDER BY created_at`, userID)
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
		`SELECT role_name, project_code FROM roles WHERE user_id = ? ORDER BY project_code, role_name`, userID)
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

// ListUsers implements Store.ListUsers
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*registry.User, error) {
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

// GetUserForAPIKey implements Store.GetUserForAPIKey. Invalidated keys
// resolve exactly like unknown ones.
func (s *SQLiteStore) GetUserForAPIKey(ctx context.Context, key string) (*registry.User, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT u.name FROM users u JOIN api_keys k ON k.user_id = u.id WHERE k.key = ? AND k.is_valid = 1`, key).
		Scan(&name)
	if err == sql.ErrNoRows {
		return nil, registry.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve api key: %w", err)
	}
	return s.GetUser(ctx, name)
}

func (s *SQLiteStore) userID(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, registry.NewUserNotFoundError(name)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}
	return id, nil
}

// AddRoles implements Store.AddRoles. The whole list is applied in one
// transaction: an unknown project anywhere in the list rejects all of it.
// Already-held roles are skipped via INSERT OR IGNORE.
func (s *SQLiteStore) AddRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userID, err := s.userID(ctx, tx, userName)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE code = ?`, role.ProjectCode).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, registry.NewProjectNotFoundError(role.ProjectCode)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up project: %w", err)
		}
	}

	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO roles (user_id, role_name, project_code) VALUES (?, ?, ?)`,
			userID, role.RoleName, role.ProjectCode); err != nil {
			return nil, fmt.Errorf("failed to add role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userName)
}

// RemoveRoles implements Store.RemoveRoles. Unheld roles are silent
// no-ops.
func (s *SQLiteStore) RemoveRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userID, err := s.userID(ctx, tx, userName)
	if err != nil {
		return nil, err
	}

	for _, role := range roles {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM roles WHERE user_id = ? AND role_name = ? AND project_code = ?`,
			userID, role.RoleName, role.ProjectCode); err != nil {
			return nil, fmt.Errorf("failed to remove role: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userName)
}

// HasRole implements Store.HasRole
func (s *SQLiteStore) HasRole(ctx context.Context, userName string, role registry.Role) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM roles r JOIN users u ON r.user_id = u.id WHERE u.name = ? AND r.role_name = ? AND r.project_code = ?`,
		userName, role.RoleName, role.ProjectCode).Scan(&exists)
	if err == sql.ErrNoRows {
		// Distinguish an unknown user from a user without the role.
		var id int64
		uerr := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE name = ?`, userName).Scan(&id)
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

// Ping implements Store.Ping
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.Close
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
