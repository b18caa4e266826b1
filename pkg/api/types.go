package api

import "github.com/docshelf/docshelf/pkg/registry"

// CreateProjectRequest is the body of POST /api/v2/projects. Name is
// derived from Title when omitted.
type CreateProjectRequest struct {
	Title       string `json:"title"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description"`
	Logo        string `json:"logo,omitempty"`
}

// UpdateProjectRequest is the body of PATCH /api/v2/projects/{name}.
// Only the supplied fields change.
type UpdateProjectRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Logo        *string `json:"logo,omitempty"`
}

// AddVersionRequest is the body of POST /api/v2/projects/{name}/versions.
type AddVersionRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UpdateVersionRequest is the body of
// PATCH /api/v2/projects/{name}/versions/{version}.
type UpdateVersionRequest struct {
	URL string `json:"url"`
}

// CreateUserRequest is the body of POST /api/v2/users.
type CreateUserRequest struct {
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

// RoleUpdateRequest is the body of PATCH and DELETE
// /api/v2/users/{name}/roles: the list of roles to grant or revoke,
// applied atomically.
type RoleUpdateRequest []registry.Role

// MessageResponse is the generic JSON envelope for operations that do
// not return an entity.
type MessageResponse struct {
	Message string `json:"message"`
}

// IndexResponse is served at GET /.
type IndexResponse struct {
	Service  string              `json:"service"`
	Projects []*registry.Project `json:"projects"`
}
