package api

import (
	"net/http"

	"github.com/docshelf/docshelf/pkg/authz"
	"github.com/docshelf/docshelf/pkg/httputil"
	"github.com/docshelf/docshelf/pkg/registry"
	"github.com/docshelf/docshelf/pkg/storage"
)

// createUser handles POST /api/v2/users. The new user gets one freshly
// minted, valid api key, returned in the response body.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.ActionCreateUser, "") {
		return
	}

	var req CreateUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	key, err := storage.NewAPIKey()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	user := &registry.User{
		Name:    req.Name,
		IsAdmin: req.IsAdmin,
		APIKeys: []registry.APIKey{key},
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"user":     req.Name,
		"is_admin": req.IsAdmin,
	}).Info("User created")
	httputil.WriteCreated(w, user)
}

// listUsers handles GET /api/v2/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.ActionListUsers, "") {
		return
	}

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

// getUser handles GET /api/v2/users/{name}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.ActionGetUser, "") {
		return
	}

	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	user, err := s.store.GetUser(r.Context(), name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// getRoles handles GET /api/v2/users/{name}/roles
func (s *Server) getRoles(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.ActionGetRoles, "") {
		return
	}

	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	user, err := s.store.GetUser(r.Context(), name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, user.Roles)
}

// parseRoleUpdate reads and validates the role list body shared by the
// PATCH and DELETE role endpoints.
func parseRoleUpdate(w http.ResponseWriter, r *http.Request) (RoleUpdateRequest, bool) {
	var req RoleUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return nil, false
	}
	if len(req) == 0 {
		httputil.WriteBadRequest(w, "at least one role is required")
		return nil, false
	}
	for _, role := range req {
		if !role.RoleName.Valid() {
			httputil.WriteBadRequest(w, "invalid role name: "+string(role.RoleName))
			return nil, false
		}
		if role.ProjectCode == "" {
			httputil.WriteBadRequest(w, "project_code is required")
			return nil, false
		}
	}
	return req, true
}

// addRoles handles PATCH /api/v2/users/{name}/roles
func (s *Server) addRoles(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.ActionAddRoles, "") {
		return
	}

	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	roles, ok := parseRoleUpdate(w, r)
	if !ok {
		return
	}

	user, err := s.store.AddRoles(r.Context(), name, roles)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.WithField("user", name).Info("Roles granted")
	httputil.WriteSuccess(w, user)
}

// removeRoles handles DELETE /api/v2/users/{name}/roles
func (s *Server) removeRoles(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.ActionRemoveRoles, "") {
		return
	}

	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	roles, ok := parseRoleUpdate(w, r)
	if !ok {
		return
	}

	user, err := s.store.RemoveRoles(r.Context(), name, roles)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.WithField("user", name).Info("Roles revoked")
	httputil.WriteSuccess(w, user)
}
