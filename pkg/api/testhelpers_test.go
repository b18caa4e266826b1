package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/authz"
	"github.com/docshelf/docshelf/pkg/config"
	"github.com/docshelf/docshelf/pkg/middleware"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
	"github.com/docshelf/docshelf/pkg/storage"
)

const (
	adminKey = "admin-key"
	pmKey    = "pm-key"
	vmKey    = "vm-key"
)

// testServer bundles the pieces handler tests need to drive the API.
type testServer struct {
	handler http.Handler
	store   storage.Store
	flags   *config.RuntimeFlags
}

// newTestServer builds a server over a memory store seeded with an
// admin, a project manager and a version manager for "seeded-project".
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	require.NoError(t, store.CreateProject(ctx, &registry.Project{
		Name:  "seeded-project",
		Title: "Seeded Project",
	}))

	require.NoError(t, store.CreateUser(ctx, &registry.User{
		Name:    "admin",
		IsAdmin: true,
		APIKeys: []registry.APIKey{{Key: adminKey, IsValid: true}},
	}))
	require.NoError(t, store.CreateUser(ctx, &registry.User{
		Name:    "pm",
		APIKeys: []registry.APIKey{{Key: pmKey, IsValid: true}},
	}))
	require.NoError(t, store.CreateUser(ctx, &registry.User{
		Name:    "vm",
		APIKeys: []registry.APIKey{{Key: vmKey, IsValid: true}},
	}))

	_, err := store.AddRoles(ctx, "pm", []registry.Role{
		{RoleName: registry.RoleProjectManager, ProjectCode: "seeded-project"},
	})
	require.NoError(t, err)
	_, err = store.AddRoles(ctx, "vm", []registry.Role{
		{RoleName: registry.RoleVersionManager, ProjectCode: "seeded-project"},
	})
	require.NoError(t, err)

	flags := config.NewRuntimeFlags(config.AuthConfig{})
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	server := NewServer(store, authz.NewGate(flags), logger, nil)
	auth := middleware.NewAPIKeyMiddleware(store, logger)

	return &testServer{
		handler: auth.Handler(server),
		store:   store,
		flags:   flags,
	}
}

// do sends a request with the given api key (empty for anonymous) and a
// JSON-marshaled body (nil for none).
func (ts *testServer) do(t *testing.T, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if apiKey != "" {
		req.Header.Set(middleware.APIKeyHeader, apiKey)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the recorded JSON body into dest.
func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}
