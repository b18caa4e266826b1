package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
	"github.com/docshelf/docshelf/pkg/storage"
)

func newAuthHandler(t *testing.T) (http.Handler, *registry.User, func(*http.Request) *registry.User) {
	t.Helper()
	store := storage.NewMemoryStore()
	user := &registry.User{
		Name:    "alice",
		APIKeys: []registry.APIKey{{Key: "alice-key", IsValid: true}},
	}
	require.NoError(t, store.CreateUser(context.Background(), user))

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	mw := NewAPIKeyMiddleware(store, logger)

	var resolved *registry.User
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = GetUser(r)
	}))
	return handler, user, func(*http.Request) *registry.User { return resolved }
}

func TestAPIKeyMiddlewareResolvesUser(t *testing.T) {
	handler, _, resolved := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "alice-key")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	user := resolved(req)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Name)
}

func TestAPIKeyMiddlewareAnonymousWithoutHeader(t *testing.T) {
	handler, _, resolved := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Nil(t, resolved(req))
}

func TestAPIKeyMiddlewareUnknownKeyIsAnonymous(t *testing.T) {
	handler, _, resolved := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, "not-a-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// the request still reaches the handler, unauthenticated
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, resolved(req))
}
