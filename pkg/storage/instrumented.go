package storage

import (
	"context"
	"time"

	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
)

// InstrumentedStore decorates a Store with operation counters, latency
// histograms and typed error counters. It sits directly above the
// backend and below any cache layer, so cached reads do not count as
// backend operations.
type InstrumentedStore struct {
	inner   Store
	metrics *observability.Metrics
	backend string
}

// NewInstrumentedStore wraps the given store. backend is the metric
// label identifying it ("memory", "sqlite", "postgres").
func NewInstrumentedStore(store Store, metrics *observability.Metrics, backend string) *InstrumentedStore {
	return &InstrumentedStore{inner: store, metrics: metrics, backend: backend}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		s.metrics.StorageErrorsTotal.WithLabelValues(op, s.backend, errorType(err)).Inc()
	}
	s.metrics.StorageOperationsTotal.WithLabelValues(op, s.backend, status).Inc()
	s.metrics.StorageOperationDuration.WithLabelValues(op, s.backend).Observe(time.Since(start).Seconds())
}

func errorType(err error) string {
	switch {
	case registry.IsNotFound(err):
		return "not_found"
	case registry.IsConflict(err):
		return "conflict"
	default:
		return "internal"
	}
}

// CreateProject implements Store.CreateProject
func (s *InstrumentedStore) CreateProject(ctx context.Context, project *registry.Project) error {
	start := time.Now()
	err := s.inner.CreateProject(ctx, project)
	s.observe("create_project", start, err)
	return err
}

// GetProject implements Store.GetProject
func (s *InstrumentedStore) GetProject(ctx context.Context, code string) (*registry.Project, error) {
	start := time.Now()
	project, err := s.inner.GetProject(ctx, code)
	s.observe("get_project", start, err)
	return project, err
}

// ListProjects implements Store.ListProjects
func (s *InstrumentedStore) ListProjects(ctx context.Context) ([]*registry.Project, error) {
	start := time.Now()
	projects, err := s.inner.ListProjects(ctx)
	s.observe("list_projects", start, err)
	return projects, err
}

// UpdateProject implements Store.UpdateProject
func (s *InstrumentedStore) UpdateProject(ctx context.Context, code string, update registry.ProjectUpdate) (*registry.Project, error) {
	start := time.Now()
	project, err := s.inner.UpdateProject(ctx, code, update)
	s.observe("update_project", start, err)
	return project, err
}

// DeleteProject implements Store.DeleteProject
func (s *InstrumentedStore) DeleteProject(ctx context.Context, code string) error {
	start := time.Now()
	err := s.inner.DeleteProject(ctx, code)
	s.observe("delete_project", start, err)
	return err
}

// AddVersion implements Store.AddVersion
func (s *InstrumentedStore) AddVersion(ctx context.Context, code string, version registry.Version) (*registry.Project, error) {
	start := time.Now()
	project, err := s.inner.AddVersion(ctx, code, version)
	s.observe("add_version", start, err)
	return project, err
}

// UpdateVersion implements Store.UpdateVersion
func (s *InstrumentedStore) UpdateVersion(ctx context.Context, code, name, newURL string) (*registry.Project, error) {
	start := time.Now()
	project, err := s.inner.UpdateVersion(ctx, code, name, newURL)
	s.observe("update_version", start, err)
	return project, err
}

// RemoveVersion implements Store.RemoveVersion
func (s *InstrumentedStore) RemoveVersion(ctx context.Context, code, name string) (*registry.Project, error) {
	start := time.Now()
	project, err := s.inner.RemoveVersion(ctx, code, name)
	s.observe("remove_version", start, err)
	return project, err
}

// CreateUser implements Store.CreateUser
func (s *InstrumentedStore) CreateUser(ctx context.Context, user *registry.User) error {
	start := time.Now()
	err := s.inner.CreateUser(ctx, user)
	s.observe("create_user", start, err)
	return err
}

// GetUser implements Store.GetUser
func (s *InstrumentedStore) GetUser(ctx context.Context, name string) (*registry.User, error) {
	start := time.Now()
	user, err := s.inner.GetUser(ctx, name)
	s.observe("get_user", start, err)
	return user, err
}

// ListUsers implements Store.ListUsers
func (s *InstrumentedStore) ListUsers(ctx context.Context) ([]*registry.User, error) {
	start := time.Now()
	users, err := s.inner.ListUsers(ctx)
	s.observe("list_users", start, err)
	return users, err
}

// GetUserForAPIKey implements Store.GetUserForAPIKey
func (s *InstrumentedStore) GetUserForAPIKey(ctx context.Context, key string) (*registry.User, error) {
	start := time.Now()
	user, err := s.inner.GetUserForAPIKey(ctx, key)
	s.observe("get_user_for_api_key", start, err)
	return user, err
}

// AddRoles implements Store.AddRoles
func (s *InstrumentedStore) AddRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error) {
	start := time.Now()
	user, err := s.inner.AddRoles(ctx, userName, roles)
	s.observe("add_roles", start, err)
	return user, err
}

// RemoveRoles implements Store.RemoveRoles
func (s *InstrumentedStore) RemoveRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error) {
	start := time.Now()
	user, err := s.inner.RemoveRoles(ctx, userName, roles)
	s.observe("remove_roles", start, err)
	return user, err
}

// HasRole implements Store.HasRole
func (s *InstrumentedStore) HasRole(ctx context.Context, userName string, role registry.Role) (bool, error) {
	start := time.Now()
	held, err := s.inner.HasRole(ctx, userName, role)
	s.observe("has_role", start, err)
	return held, err
}

// Ping implements Store.Ping. Health probes are not counted as
// storage operations.
func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close implements Store.Close
func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}
