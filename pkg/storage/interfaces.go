package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/docshelf/docshelf/pkg/auth"
	"github.com/docshelf/docshelf/pkg/registry"
)

// Store is the persistence interface shared by every backend. All
// operations are synchronous and context-aware; mutations on the same
// aggregate (one project's versions, one user's roles) are serialized by
// the backend so concurrent conflicting writes yield exactly one success
// and one typed failure, never a silent overwrite.
type Store interface {
	// Project operations
	CreateProject(ctx context.Context, project *registry.Project) error
	GetProject(ctx context.Context, code string) (*registry.Project, error)
	ListProjects(ctx context.Context) ([]*registry.Project, error)
	// UpdateProject applies a partial update; an empty update fails with
	// registry.ErrNoFieldsToUpdate, distinct from not-found.
	UpdateProject(ctx context.Context, code string, update registry.ProjectUpdate) (*registry.Project, error)
	// DeleteProject is idempotent and cascades to the project's versions.
	DeleteProject(ctx context.Context, code string) error

	// Version operations. Each returns the project with its versions in
	// natural order after the mutation.
	AddVersion(ctx context.Context, code string, version registry.Version) (*registry.Project, error)
	UpdateVersion(ctx context.Context, code, name, newURL string) (*registry.Project, error)
	// RemoveVersion treats an absent version name as a no-op.
	RemoveVersion(ctx context.Context, code, name string) (*registry.Project, error)

	// User operations
	CreateUser(ctx context.Context, user *registry.User) error
	GetUser(ctx context.Context, name string) (*registry.User, error)
	ListUsers(ctx context.Context) ([]*registry.User, error)
	// GetUserForAPIKey resolves a key to its owning user. Keys whose
	// validity flag is false behave exactly like unknown keys: both fail
	// with registry.ErrUserNotFound.
	GetUserForAPIKey(ctx context.Context, key string) (*registry.User, error)

	// Role operations. AddRoles and RemoveRoles apply the whole list
	// atomically; adding an already-held role and removing an unheld one
	// are silent no-ops.
	AddRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error)
	RemoveRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error)
	HasRole(ctx context.Context, userName string, role registry.Role) (bool, error)

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error
	Close() error
}

// Config for the storage backend
type Config struct {
	Type string // "memory", "sqlite", "postgres"

	// SQLite config
	SQLitePath string

	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// Redis cache config (postgres backend only)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// In-process cache config
	CacheEnabled bool
	CacheTTL     time.Duration
	LRUSize      int
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "sqlite",
		SQLitePath:       "docshelf.sqlite",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		CacheEnabled:     false,
		CacheTTL:         time.Minute,
		LRUSize:          512,
	}
}

// RootUserName is the bootstrap admin principal.
const RootUserName = "root"

// EnsureRootUser provisions the bootstrap admin on first startup, carrying
// the configured API key. Subsequent startups leave the existing root
// user untouched, even when the configured key changed.
func EnsureRootUser(ctx context.Context, store Store, rootAPIKey string) error {
	if _, err := store.GetUser(ctx, RootUserName); err == nil {
		return nil
	} else if !registry.IsNotFound(err) {
		return fmt.Errorf("failed to look up root user: %w", err)
	}

	now := time.Now().UTC()
	root := &registry.User{
		Name:      RootUserName,
		IsAdmin:   true,
		CreatedAt: now,
		APIKeys: []registry.APIKey{
			{Key: rootAPIKey, IsValid: true, CreatedAt: now},
		},
	}
	if err := store.CreateUser(ctx, root); err != nil {
		return fmt.Errorf("failed to create root user: %w", err)
	}
	return nil
}

// NewAPIKey mints a fresh valid API key record.
func NewAPIKey() (registry.APIKey, error) {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return registry.APIKey{}, err
	}
	return registry.APIKey{
		Key:       key,
		IsValid:   true,
		CreatedAt: time.Now().UTC(),
	}, nil
}
