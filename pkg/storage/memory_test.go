package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/registry"
)

func TestMemoryStoreConformance(t *testing.T) {
	runStoreConformance(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.CreateProject(ctx, &registry.Project{Name: "copy-check", Title: "Copy"}))
	_, err := store.AddVersion(ctx, "copy-check", registry.Version{Name: "1.0.0", URL: "http://docs"})
	require.NoError(t, err)

	got, err := store.GetProject(ctx, "copy-check")
	require.NoError(t, err)
	got.Title = "mutated"
	got.Versions[0].URL = "http://mutated"

	again, err := store.GetProject(ctx, "copy-check")
	require.NoError(t, err)
	assert.Equal(t, "Copy", again.Title)
	assert.Equal(t, "http://docs", again.Versions[0].URL)
}
