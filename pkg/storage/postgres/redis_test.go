package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
	"github.com/docshelf/docshelf/pkg/storage"
)

func newCachedStore(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCacheWithClient(storage.NewMemoryStore(), client, 5*time.Minute)
	t.Cleanup(func() { cache.Close() })
	return cache, mr
}

func TestRedisCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCachedStore(t)

	require.NoError(t, cache.CreateProject(ctx, &registry.Project{Name: "cached", Title: "Cached"}))

	first, err := cache.GetProject(ctx, "cached")
	require.NoError(t, err)
	assert.True(t, mr.Exists("project:cached"))

	second, err := cache.GetProject(ctx, "cached")
	require.NoError(t, err)
	assert.Equal(t, first.Title, second.Title)
}

func TestRedisCacheCountsHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	cache, _ := newCachedStore(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	cache.WithMetrics(metrics)

	require.NoError(t, cache.CreateProject(ctx, &registry.Project{Name: "hot", Title: "Hot"}))

	_, err := cache.GetProject(ctx, "hot")
	require.NoError(t, err)
	_, err = cache.GetProject(ctx, "hot")
	require.NoError(t, err)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("redis")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("redis")))
}

func TestRedisCacheInvalidationOnMutation(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCachedStore(t)

	require.NoError(t, cache.CreateProject(ctx, &registry.Project{Name: "lib", Title: "Lib"}))
	_, err := cache.GetProject(ctx, "lib")
	require.NoError(t, err)
	require.True(t, mr.Exists("project:lib"))

	_, err = cache.AddVersion(ctx, "lib", registry.Version{Name: "1.0.0", URL: "http://docs/1.0.0"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("project:lib"))

	got, err := cache.GetProject(ctx, "lib")
	require.NoError(t, err)
	require.Len(t, got.Versions, 1)
}

func TestRedisCacheListInvalidation(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCachedStore(t)

	require.NoError(t, cache.CreateProject(ctx, &registry.Project{Name: "one", Title: "One"}))
	projects, err := cache.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.True(t, mr.Exists("projects:list"))

	require.NoError(t, cache.CreateProject(ctx, &registry.Project{Name: "two", Title: "Two"}))
	assert.False(t, mr.Exists("projects:list"))

	projects, err = cache.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}

func TestRedisCacheExpiredEntryFallsThrough(t *testing.T) {
	ctx := context.Background()
	cache, mr := newCachedStore(t)

	require.NoError(t, cache.CreateProject(ctx, &registry.Project{Name: "ttl", Title: "TTL"}))
	_, err := cache.GetProject(ctx, "ttl")
	require.NoError(t, err)

	mr.FastForward(10 * time.Minute)
	require.False(t, mr.Exists("project:ttl"))

	got, err := cache.GetProject(ctx, "ttl")
	require.NoError(t, err)
	assert.Equal(t, "TTL", got.Title)
}
