package api

import (
	"net/http"

	"github.com/docshelf/docshelf/pkg/authz"
	"github.com/docshelf/docshelf/pkg/httputil"
	"github.com/docshelf/docshelf/pkg/registry"
)

// createProject handles POST /api/v2/projects
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, authz.ActionCreateProject, "") {
		return
	}

	var req CreateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Title, "title") {
		return
	}

	name := req.Name
	if name == "" {
		name = registry.ProjectCodeFromTitle(req.Title)
	}
	if err := registry.ValidateProjectCode(name); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	project := &registry.Project{
		Name:        name,
		Title:       req.Title,
		Description: req.Description,
		Logo:        req.Logo,
	}
	if err := s.store.CreateProject(r.Context(), project); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.WithField("project", name).Info("Project created")
	httputil.WriteCreated(w, project)
}

// listProjects handles GET /api/v2/projects
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, projects)
}

// getProject handles GET /api/v2/projects/{name}
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	project, err := s.store.GetProject(r.Context(), name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, project)
}

// updateProject handles PATCH /api/v2/projects/{name}
func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.ActionUpdateProject, name) {
		return
	}

	var req UpdateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	project, err := s.store.UpdateProject(r.Context(), name, registry.ProjectUpdate{
		Title:       req.Title,
		Description: req.Description,
		Logo:        req.Logo,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, project)
}

// deleteProject handles DELETE /api/v2/projects/{name}
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.ActionDeleteProject, name) {
		return
	}

	if err := s.store.DeleteProject(r.Context(), name); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.WithField("project", name).Info("Project deleted")
	httputil.WriteSuccess(w, MessageResponse{Message: "Removed project " + name})
}

// addVersion handles POST /api/v2/projects/{name}/versions
func (s *Server) addVersion(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.ActionAddVersion, name) {
		return
	}

	var req AddVersionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.URL, "url") {
		return
	}

	project, err := s.store.AddVersion(r.Context(), name, registry.Version{
		Name: req.Name,
		URL:  req.URL,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.logger.WithFields(map[string]interface{}{
		"project": name,
		"version": req.Name,
	}).Info("Version added")
	httputil.WriteCreated(w, project)
}

// getVersion handles GET /api/v2/projects/{name}/versions/{version},
// resolving the "latest" alias through natural ordering.
func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	versionName, ok := httputil.ParsePathStringOrError(w, r, "version")
	if !ok {
		return
	}

	project, err := s.store.GetProject(r.Context(), name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	version := project.Version(versionName)
	if version == nil {
		s.writeStoreError(w, registry.NewVersionNotFoundError(name, versionName))
		return
	}
	httputil.WriteSuccess(w, version)
}

// updateVersion handles PATCH /api/v2/projects/{name}/versions/{version}
func (s *Server) updateVersion(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	versionName, ok := httputil.ParsePathStringOrError(w, r, "version")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.ActionUpdateVersion, name) {
		return
	}

	var req UpdateVersionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.URL, "url") {
		return
	}

	project, err := s.store.UpdateVersion(r.Context(), name, versionName, req.URL)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, project)
}

// removeVersion handles DELETE /api/v2/projects/{name}/versions/{version}
func (s *Server) removeVersion(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}
	versionName, ok := httputil.ParsePathStringOrError(w, r, "version")
	if !ok {
		return
	}
	if !s.authorize(w, r, authz.ActionRemoveVersion, name) {
		return
	}

	project, err := s.store.RemoveVersion(r.Context(), name, versionName)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, project)
}
