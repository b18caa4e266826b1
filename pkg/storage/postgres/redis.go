package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
	"github.com/docshelf/docshelf/pkg/storage"
)

const (
	projectKeyPrefix = "project:"
	projectListKey   = "projects:list"
)

// RedisCache caches project reads in Redis in front of another store.
// User and role data is never cached: api-key resolution and role checks
// must observe revocations immediately.
type RedisCache struct {
	storage.Store
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// cacheTypeRedis is the cache_type metric label for this layer.
const cacheTypeRedis = "redis"

// NewRedisCache connects to Redis and wraps the given store.
func NewRedisCache(inner storage.Store, cfg storage.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &RedisCache{Store: inner, redis: client, ttl: ttl}, nil
}

// NewRedisCacheWithClient wraps an existing client, used by tests.
func NewRedisCacheWithClient(inner storage.Store, client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Store: inner, redis: client, ttl: ttl}
}

// Client exposes the underlying redis client for health probes.
func (c *RedisCache) Client() *redis.Client {
	return c.redis
}

// WithMetrics enables hit/miss counters on the cache.
func (c *RedisCache) WithMetrics(metrics *observability.Metrics) *RedisCache {
	c.metrics = metrics
	return c
}

func (c *RedisCache) countHit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(cacheTypeRedis).Inc()
	}
}

func (c *RedisCache) countMiss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(cacheTypeRedis).Inc()
	}
}

// GetProject tries the cache before falling through to the inner store.
func (c *RedisCache) GetProject(ctx context.Context, code string) (*registry.Project, error) {
	cacheKey := projectKeyPrefix + code

	cached, err := c.redis.Get(ctx, cacheKey).Result()
	if err == nil {
		var project registry.Project
		if err := json.Unmarshal([]byte(cached), &project); err == nil {
			c.countHit()
			return &project, nil
		}
	}
	c.countMiss()

	project, err := c.Store.GetProject(ctx, code)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(project); err == nil {
		c.redis.Set(ctx, cacheKey, data, c.ttl)
	}
	return project, nil
}

// ListProjects tries the cached listing before the inner store.
func (c *RedisCache) ListProjects(ctx context.Context) ([]*registry.Project, error) {
	cached, err := c.redis.Get(ctx, projectListKey).Result()
	if err == nil {
		var projects []*registry.Project
		if err := json.Unmarshal([]byte(cached), &projects); err == nil {
			c.countHit()
			return projects, nil
		}
	}
	c.countMiss()

	projects, err := c.Store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(projects); err == nil {
		c.redis.Set(ctx, projectListKey, data, c.ttl)
	}
	return projects, nil
}

func (c *RedisCache) invalidate(ctx context.Context, code string) {
	c.redis.Del(ctx, projectKeyPrefix+code, projectListKey)
}

// CreateProject writes through and invalidates the listing.
func (c *RedisCache) CreateProject(ctx context.Context, project *registry.Project) error {
	if err := c.Store.CreateProject(ctx, project); err != nil {
		return err
	}
	c.invalidate(ctx, project.Name)
	return nil
}

// UpdateProject writes through and invalidates the project entry.
func (c *RedisCache) UpdateProject(ctx context.Context, code string, update registry.ProjectUpdate) (*registry.Project, error) {
	project, err := c.Store.UpdateProject(ctx, code, update)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, code)
	return project, nil
}

// DeleteProject writes through and invalidates the project entry.
func (c *RedisCache) DeleteProject(ctx context.Context, code string) error {
	if err := c.Store.DeleteProject(ctx, code); err != nil {
		return err
	}
	c.invalidate(ctx, code)
	return nil
}

// AddVersion writes through and invalidates the project entry.
func (c *RedisCache) AddVersion(ctx context.Context, code string, version registry.Version) (*registry.Project, error) {
	project, err := c.Store.AddVersion(ctx, code, version)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, code)
	return project, nil
}

// UpdateVersion writes through and invalidates the project entry.
func (c *RedisCache) UpdateVersion(ctx context.Context, code, name, newURL string) (*registry.Project, error) {
	project, err := c.Store.UpdateVersion(ctx, code, name, newURL)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, code)
	return project, nil
}

// RemoveVersion writes through and invalidates the project entry.
func (c *RedisCache) RemoveVersion(ctx context.Context, code, name string) (*registry.Project, error) {
	project, err := c.Store.RemoveVersion(ctx, code, name)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, code)
	return project, nil
}

// Close closes the Redis connection and the inner store.
func (c *RedisCache) Close() error {
	redisErr := c.redis.Close()
	if err := c.Store.Close(); err != nil {
		return err
	}
	return redisErr
}
