// Package middleware provides the api-key authentication middleware.
package middleware

import (
	"net/http"

	"github.com/docshelf/docshelf/pkg/contextkeys"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
	"github.com/docshelf/docshelf/pkg/storage"
)

// APIKeyHeader is the header carrying the caller's api key.
const APIKeyHeader = "Api-Key"

// APIKeyMiddleware resolves the Api-Key header to a user and attaches
// it to the request context. Requests without a resolvable key continue
// anonymously; the authorization gate decides whether anonymous access
// is acceptable for the operation.
type APIKeyMiddleware struct {
	store  storage.Store
	logger *observability.Logger
}

// NewAPIKeyMiddleware creates the authentication middleware.
func NewAPIKeyMiddleware(store storage.Store, logger *observability.Logger) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		store:  store,
		logger: logger,
	}
}

// Handler wraps an HTTP handler with api-key resolution
func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.store.GetUserForAPIKey(r.Context(), key)
		if err != nil {
			// an unknown or revoked key is treated as anonymous, it is
			// logged for operators chasing misconfigured clients
			if !registry.IsNotFound(err) {
				m.logger.WithError(err).Error("Failed to resolve api key")
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextkeys.WithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUser extracts the authenticated user from the request context,
// or nil for anonymous requests.
func GetUser(r *http.Request) *registry.User {
	value := r.Context().Value(contextkeys.UserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*registry.User)
	if !ok {
		return nil
	}
	return user
}
