package storage

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
)

func newInstrumentedMemoryStore(t *testing.T) (*InstrumentedStore, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	store := NewInstrumentedStore(NewMemoryStore(), metrics, "memory")
	t.Cleanup(func() { store.Close() })
	return store, metrics
}

func TestInstrumentedStoreConformance(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		store, _ := newInstrumentedMemoryStore(t)
		return store
	})
}

func TestInstrumentedStoreCountsOperations(t *testing.T) {
	ctx := context.Background()
	store, metrics := newInstrumentedMemoryStore(t)

	require.NoError(t, store.CreateProject(ctx, &registry.Project{Name: "counted", Title: "Counted"}))
	_, err := store.GetProject(ctx, "counted")
	require.NoError(t, err)
	_, err = store.GetProject(ctx, "counted")
	require.NoError(t, err)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("create_project", "memory", "ok")))
	assert.Equal(t, float64(2),
		testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("get_project", "memory", "ok")))
}

func TestInstrumentedStoreCountsErrors(t *testing.T) {
	ctx := context.Background()
	store, metrics := newInstrumentedMemoryStore(t)

	_, err := store.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, registry.ErrProjectNotFound)

	require.NoError(t, store.CreateProject(ctx, &registry.Project{Name: "taken", Title: "Taken"}))
	err = store.CreateProject(ctx, &registry.Project{Name: "taken", Title: "Again"})
	assert.ErrorIs(t, err, registry.ErrDuplicateProject)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.StorageOperationsTotal.WithLabelValues("get_project", "memory", "error")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.StorageErrorsTotal.WithLabelValues("get_project", "memory", "not_found")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(metrics.StorageErrorsTotal.WithLabelValues("create_project", "memory", "conflict")))
}
