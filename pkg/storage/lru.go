package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
)

// cacheTypeLRU is the cache_type metric label for this layer.
const cacheTypeLRU = "lru"

// LRUStore wraps a Store with an in-process LRU read cache for project
// lookups, the hot path of the redirect surface. Every project or version
// mutation evicts the affected entry, so within one process a read after
// a write always observes the write. User and role operations are passed
// through uncached: authentication and authorization must see changes on
// the very next request.
type LRUStore struct {
	Store
	projects *lru.Cache[string, *registry.Project]
	metrics  *observability.Metrics
}

// NewLRUStore creates the cache layer. size is the maximum number of
// cached projects.
func NewLRUStore(store Store, size int) (*LRUStore, error) {
	cache, err := lru.New[string, *registry.Project](size)
	if err != nil {
		return nil, err
	}
	return &LRUStore{Store: store, projects: cache}, nil
}

// WithMetrics enables hit/miss counters on the cache.
func (s *LRUStore) WithMetrics(metrics *observability.Metrics) *LRUStore {
	s.metrics = metrics
	return s
}

// GetProject implements Store.GetProject with read-through caching.
func (s *LRUStore) GetProject(ctx context.Context, code string) (*registry.Project, error) {
	if project, ok := s.projects.Get(code); ok {
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.WithLabelValues(cacheTypeLRU).Inc()
		}
		return project, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.WithLabelValues(cacheTypeLRU).Inc()
	}
	project, err := s.Store.GetProject(ctx, code)
	if err != nil {
		return nil, err
	}
	s.projects.Add(code, project)
	return project, nil
}

// CreateProject implements Store.CreateProject
func (s *LRUStore) CreateProject(ctx context.Context, project *registry.Project) error {
	err := s.Store.CreateProject(ctx, project)
	if err == nil {
		s.projects.Remove(project.Name)
	}
	return err
}

// UpdateProject implements Store.UpdateProject
func (s *LRUStore) UpdateProject(ctx context.Context, code string, update registry.ProjectUpdate) (*registry.Project, error) {
	project, err := s.Store.UpdateProject(ctx, code, update)
	s.projects.Remove(code)
	return project, err
}

// DeleteProject implements Store.DeleteProject
func (s *LRUStore) DeleteProject(ctx context.Context, code string) error {
	err := s.Store.DeleteProject(ctx, code)
	s.projects.Remove(code)
	return err
}

// AddVersion implements Store.AddVersion
func (s *LRUStore) AddVersion(ctx context.Context, code string, version registry.Version) (*registry.Project, error) {
	project, err := s.Store.AddVersion(ctx, code, version)
	s.projects.Remove(code)
	return project, err
}

// UpdateVersion implements Store.UpdateVersion
func (s *LRUStore) UpdateVersion(ctx context.Context, code, name, newURL string) (*registry.Project, error) {
	project, err := s.Store.UpdateVersion(ctx, code, name, newURL)
	s.projects.Remove(code)
	return project, err
}

// RemoveVersion implements Store.RemoveVersion
func (s *LRUStore) RemoveVersion(ctx context.Context, code, name string) (*registry.Project, error) {
	project, err := s.Store.RemoveVersion(ctx, code, name)
	s.projects.Remove(code)
	return project, err
}
