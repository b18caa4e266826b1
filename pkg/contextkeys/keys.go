// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application are defined here so key
// usage stays discoverable and collision-free.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains the authenticated *registry.User, or nothing for
	// anonymous requests.
	// Set by: middleware.APIKeyMiddleware (pkg/middleware/auth.go)
	// Required by: authorization gate calls in pkg/api handlers
	UserKey Key = "authenticated_user"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: logging, error responses
	RequestIDKey Key = "request_id"
)

// WithUser adds the authenticated user to the context.
func WithUser(ctx context.Context, user interface{}) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// WithRequestID adds the request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
