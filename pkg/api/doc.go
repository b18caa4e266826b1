// Package api implements the registry's HTTP surface.
//
// # Overview
//
// The server exposes the v2 REST API for projects, documentation
// versions, users and roles, plus the public redirect surface that
// sends browsers to the hosted documentation:
//
//	POST   /api/v2/projects                                create project (admin)
//	GET    /api/v2/projects                                list projects
//	GET    /api/v2/projects/{name}                         get one project
//	PATCH  /api/v2/projects/{name}                         partial update (project manager)
//	DELETE /api/v2/projects/{name}                         delete (project manager)
//	POST   /api/v2/projects/{name}/versions                add version (either manager)
//	GET    /api/v2/projects/{name}/versions/{version}      get version, "latest" allowed
//	PATCH  /api/v2/projects/{name}/versions/{version}      change URL (either manager)
//	DELETE /api/v2/projects/{name}/versions/{version}      remove (either manager)
//	POST   /api/v2/users                                   create user (admin)
//	GET    /api/v2/users                                   list users (admin)
//	GET    /api/v2/users/{name}                            get user (admin)
//	GET    /api/v2/users/{name}/roles                      list roles (admin)
//	PATCH  /api/v2/users/{name}/roles                      grant roles (admin, atomic)
//	DELETE /api/v2/users/{name}/roles                      revoke roles (admin, atomic)
//	GET    /                                               JSON project index
//	GET    /{project}/{version}/{path...}                  302 to the docs
//
// Authentication is the Api-Key header, resolved by
// middleware.APIKeyMiddleware. Every protected handler calls the
// authorization gate first; the evaluation order (read-only lockout,
// login-disabled bypass, authentication, admin requirement, project
// roles) lives in pkg/authz.
//
// # Status codes
//
// 201 on creation, 200 on success, 400 for malformed input, 401 when no
// principal resolves, 403 for missing capability, 404 for unknown
// project/version/user, 409 for duplicate names, 423 while read-only,
// 500 for unclassified faults.
package api
