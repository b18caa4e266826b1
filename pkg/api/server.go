package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/docshelf/docshelf/pkg/authz"
	"github.com/docshelf/docshelf/pkg/httputil"
	"github.com/docshelf/docshelf/pkg/middleware"
	"github.com/docshelf/docshelf/pkg/observability"
	"github.com/docshelf/docshelf/pkg/registry"
	"github.com/docshelf/docshelf/pkg/storage"
)

// Server is the registry HTTP API.
type Server struct {
	store   storage.Store
	gate    *authz.Gate
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewServer creates the API server. metrics may be nil when metrics are
// disabled.
func NewServer(store storage.Store, gate *authz.Gate, logger *observability.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		store:   store,
		gate:    gate,
		router:  mux.NewRouter(),
		logger:  logger,
		metrics: metrics,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Project routes
	s.router.HandleFunc("/api/v2/projects", s.createProject).Methods("POST")
	s.router.HandleFunc("/api/v2/projects", s.listProjects).Methods("GET")
	s.router.HandleFunc("/api/v2/projects/{name}", s.getProject).Methods("GET")
	s.router.HandleFunc("/api/v2/projects/{name}", s.updateProject).Methods("PATCH")
	s.router.HandleFunc("/api/v2/projects/{name}", s.deleteProject).Methods("DELETE")

	// Version routes
	s.router.HandleFunc("/api/v2/projects/{name}/versions", s.addVersion).Methods("POST")
	s.router.HandleFunc("/api/v2/projects/{name}/versions/{version}", s.getVersion).Methods("GET")
	s.router.HandleFunc("/api/v2/projects/{name}/versions/{version}", s.updateVersion).Methods("PATCH")
	s.router.HandleFunc("/api/v2/projects/{name}/versions/{version}", s.removeVersion).Methods("DELETE")

	// User and role routes
	s.router.HandleFunc("/api/v2/users", s.createUser).Methods("POST")
	s.router.HandleFunc("/api/v2/users", s.listUsers).Methods("GET")
	s.router.HandleFunc("/api/v2/users/{name}", s.getUser).Methods("GET")
	s.router.HandleFunc("/api/v2/users/{name}/roles", s.getRoles).Methods("GET")
	s.router.HandleFunc("/api/v2/users/{name}/roles", s.addRoles).Methods("PATCH")
	s.router.HandleFunc("/api/v2/users/{name}/roles", s.removeRoles).Methods("DELETE")

	// Redirect surface, registered after the API so /api/v2 wins
	s.router.HandleFunc("/", s.index).Methods("GET")
	s.router.HandleFunc("/{project}/{version}", s.docRedirect).Methods("GET")
	s.router.HandleFunc("/{project}/{version}/", s.docRedirect).Methods("GET")
	s.router.HandleFunc("/{project}/{version}/{path:.*}", s.docRedirect).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the underlying router so callers can wrap it with
// extra middleware or tracing.
func (s *Server) Router() *mux.Router {
	return s.router
}

// authorize runs the gate for the request and writes the matching error
// response on denial. Returns true when the request may proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, action authz.Action, projectCode string) bool {
	user := middleware.GetUser(r)
	err := s.gate.Authorize(r.Context(), user, action, projectCode)

	if s.metrics != nil {
		decision := "allow"
		switch {
		case errors.Is(err, authz.ErrReadOnly):
			decision = "readonly"
		case errors.Is(err, authz.ErrUnauthenticated):
			decision = "unauthenticated"
		case errors.Is(err, authz.ErrForbidden):
			decision = "forbidden"
		}
		s.metrics.AuthDecisionsTotal.WithLabelValues(string(action), decision).Inc()
	}

	switch {
	case err == nil:
		return true
	case errors.Is(err, authz.ErrReadOnly):
		httputil.WriteLocked(w, "service is in read-only mode")
	case errors.Is(err, authz.ErrUnauthenticated):
		httputil.WriteUnauthorized(w, "a valid Api-Key header is required")
	case errors.Is(err, authz.ErrForbidden):
		httputil.WriteForbidden(w, "permission denied")
	default:
		httputil.WriteInternalError(w, err)
	}
	return false
}

// writeStoreError translates storage errors into HTTP responses.
// Unclassified errors are logged and surfaced as a generic 500.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case registry.IsNotFound(err):
		httputil.WriteNotFound(w, err.Error())
	case registry.IsConflict(err):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, registry.ErrNoFieldsToUpdate):
		httputil.WriteBadRequest(w, "no fields to update")
	default:
		s.logger.WithError(err).Error("Storage operation failed")
		httputil.WriteInternalError(w, errors.New("internal server error"))
	}
}

// index handles GET /
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	httputil.WriteSuccess(w, IndexResponse{
		Service:  "docshelf",
		Projects: projects,
	})
}
