package storage

import (
	"context"
	"sync"
	"time"

	"github.com/docshelf/docshelf/pkg/registry"
)

// MemoryStore implements Store with plain maps behind a mutex. Intended
// for tests and local development; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*registry.Project
	users    map[string]*registry.User
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]*registry.Project),
		users:    make(map[string]*registry.User),
	}
}

// CreateProject implements Store.CreateProject
func (s *MemoryStore) CreateProject(ctx context.Context, project *registry.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[project.Name]; ok {
		return registry.ErrDuplicateProject
	}
	stored := cloneProject(project)
	if stored.Versions == nil {
		stored.Versions = []registry.Version{}
	}
	s.projects[project.Name] = stored
	return nil
}

// GetProject implements Store.GetProject
func (s *MemoryStore) GetProject(ctx context.Context, code string) (*registry.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	project, ok := s.projects[code]
	if !ok {
		return nil, registry.NewProjectNotFoundError(code)
	}
	return sortedClone(project), nil
}

// ListProjects implements Store.ListProjects
func (s *MemoryStore) ListProjects(ctx context.Context) ([]*registry.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]*registry.Project, 0, len(s.projects))
	for _, p := range s.projects {
		projects = append(projects, sortedClone(p))
	}
	return projects, nil
}

// UpdateProject implements Store.UpdateProject
func (s *MemoryStore) UpdateProject(ctx context.Context, code string, update registry.ProjectUpdate) (*registry.Project, error) {
	if update.IsEmpty() {
		return nil, registry.ErrNoFieldsToUpdate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[code]
	if !ok {
		return nil, registry.NewProjectNotFoundError(code)
	}
	if update.Title != nil {
		project.Title = *update.Title
	}
	if update.Description != nil {
		project.Description = *update.Description
	}
	if update.Logo != nil {
		project.Logo = *update.Logo
	}
	project.UpdatedAt = time.Now().UTC()
	return sortedClone(project), nil
}

// DeleteProject implements Store.DeleteProject. Deleting an absent
// project succeeds silently.
func (s *MemoryStore) DeleteProject(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projects, code)
	return nil
}

// AddVersion implements Store.AddVersion
func (s *MemoryStore) AddVersion(ctx context.Context, code string, version registry.Version) (*registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[code]
	if !ok {
		return nil, registry.NewProjectNotFoundError(code)
	}
	if project.HasVersion(version.Name) {
		return nil, registry.ErrDuplicateVersion
	}
	project.Versions = append(project.Versions, version)
	project.UpdatedAt = time.Now().UTC()
	return sortedClone(project), nil
}

// UpdateVersion implements Store.UpdateVersion
func (s *MemoryStore) UpdateVersion(ctx context.Context, code, name, newURL string) (*registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[code]
	if !ok {
		return nil, registry.NewProjectNotFoundError(code)
	}
	for i := range project.Versions {
		if project.Versions[i].Name == name {
			project.Versions[i].URL = newURL
			project.UpdatedAt = time.Now().UTC()
			return sortedClone(project), nil
		}
	}
	return nil, registry.NewVersionNotFoundError(code, name)
}

// RemoveVersion implements Store.RemoveVersion. Removing an absent
// version name is a no-op.
func (s *MemoryStore) RemoveVersion(ctx context.Context, code, name string) (*registry.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[code]
	if !ok {
		return nil, registry.NewProjectNotFoundError(code)
	}
	for i := range project.Versions {
		if project.Versions[i].Name == name {
			project.Versions = append(project.Versions[:i], project.Versions[i+1:]...)
			project.UpdatedAt = time.Now().UTC()
			break
		}
	}
	return sortedClone(project), nil
}

// CreateUser implements Store.CreateUser
func (s *MemoryStore) CreateUser(ctx context.Context, user *registry.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Name]; ok {
		return registry.ErrDuplicateUser
	}
	for _, existing := range s.users {
		for _, k := range existing.APIKeys {
			for _, nk := range user.APIKeys {
				if k.Key == nk.Key {
					return registry.ErrDuplicateUser
				}
			}
		}
	}
	s.users[user.Name] = cloneUser(user)
	return nil
}

// GetUser implements Store.GetUser
func (s *MemoryStore) GetUser(ctx context.Context, name string) (*registry.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[name]
	if !ok {
		return nil, registry.NewUserNotFoundError(name)
	}
	return cloneUser(user), nil
}

// ListUsers implements Store.ListUsers
func (s *MemoryStore) ListUsers(ctx context.Context) ([]*registry.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*registry.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, cloneUser(u))
	}
	return users, nil
}

// GetUserForAPIKey implements Store.GetUserForAPIKey
func (s *MemoryStore) GetUserForAPIKey(ctx context.Context, key string) (*registry.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		for _, k := range user.APIKeys {
			if k.Key == key && k.IsValid {
				return cloneUser(user), nil
			}
		}
	}
	return nil, registry.ErrUserNotFound
}

// AddRoles implements Store.AddRoles. The whole list is validated before
// anything is applied, so a missing project rejects the entire request.
func (s *MemoryStore) AddRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userName]
	if !ok {
		return nil, registry.NewUserNotFoundError(userName)
	}
	for _, role := range roles {
		if _, ok := s.projects[role.ProjectCode]; !ok {
			return nil, registry.NewProjectNotFoundError(role.ProjectCode)
		}
	}
	for _, role := range roles {
		if !user.HasRole(role) {
			user.Roles = append(user.Roles, role)
		}
	}
	return cloneUser(user), nil
}

// RemoveRoles implements Store.RemoveRoles
func (s *MemoryStore) RemoveRoles(ctx context.Context, userName string, roles []registry.Role) (*registry.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userName]
	if !ok {
		return nil, registry.NewUserNotFoundError(userName)
	}
	for _, role := range roles {
		for i := range user.Roles {
			if user.Roles[i] == role {
				user.Roles = append(user.Roles[:i], user.Roles[i+1:]...)
				break
			}
		}
	}
	return cloneUser(user), nil
}

// HasRole implements Store.HasRole
func (s *MemoryStore) HasRole(ctx context.Context, userName string, role registry.Role) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userName]
	if !ok {
		return false, registry.NewUserNotFoundError(userName)
	}
	return user.HasRole(role), nil
}

// Ping implements Store.Ping
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close implements Store.Close
func (s *MemoryStore) Close() error {
	return nil
}

// cloneProject deep-copies a project so callers never alias store state.
func cloneProject(p *registry.Project) *registry.Project {
	clone := *p
	clone.Versions = make([]registry.Version, len(p.Versions))
	copy(clone.Versions, p.Versions)
	return &clone
}

// sortedClone deep-copies a project with versions in natural order.
func sortedClone(p *registry.Project) *registry.Project {
	clone := *p
	clone.Versions = registry.SortVersions(p.Versions)
	return &clone
}

func cloneUser(u *registry.User) *registry.User {
	clone := *u
	clone.APIKeys = make([]registry.APIKey, len(u.APIKeys))
	copy(clone.APIKeys, u.APIKeys)
	clone.Roles = make([]registry.Role, len(u.Roles))
	copy(clone.Roles, u.Roles)
	return &clone
}
