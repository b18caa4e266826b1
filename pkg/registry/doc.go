// Package registry defines the core domain model of the documentation
// registry: projects, their documentation versions, users with API keys,
// and project-scoped roles.
//
// The package is persistence-free. Storage backends (pkg/storage) enforce
// uniqueness and durability; this package owns identity rules (project
// code validation), the natural version ordering used to resolve the
// "latest" alias, and the typed errors shared by every layer.
package registry
