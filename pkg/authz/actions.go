package authz

import "github.com/docshelf/docshelf/pkg/registry"

// Action identifies an operation submitted to the gate.
type Action string

const (
	// Project mutations require the project-manager role.
	ActionCreateProject Action = "project.create"
	ActionUpdateProject Action = "project.update"
	ActionDeleteProject Action = "project.delete"

	// Version mutations accept either manager role on the project.
	ActionAddVersion    Action = "version.add"
	ActionUpdateVersion Action = "version.update"
	ActionRemoveVersion Action = "version.remove"

	// User and role administration is reserved for admins.
	ActionCreateUser  Action = "user.create"
	ActionGetUser     Action = "user.get"
	ActionListUsers   Action = "user.list"
	ActionAddRoles    Action = "roles.add"
	ActionRemoveRoles Action = "roles.remove"
	ActionGetRoles    Action = "roles.get"
)

// adminOnly lists actions no project role can grant.
var adminOnly = map[Action]bool{
	ActionCreateProject: true,
	ActionCreateUser:    true,
	ActionGetUser:       true,
	ActionListUsers:     true,
	ActionAddRoles:      true,
	ActionRemoveRoles:   true,
	ActionGetRoles:      true,
}

// mutating lists actions blocked while the service is read-only.
var mutating = map[Action]bool{
	ActionCreateProject: true,
	ActionUpdateProject: true,
	ActionDeleteProject: true,
	ActionAddVersion:    true,
	ActionUpdateVersion: true,
	ActionRemoveVersion: true,
	ActionCreateUser:    true,
	ActionAddRoles:      true,
	ActionRemoveRoles:   true,
}

// acceptedRoles maps a project-scoped action to the roles that may
// perform it. Project managers hold every capability a version manager
// holds.
var acceptedRoles = map[Action][]registry.RoleName{
	ActionUpdateProject: {registry.RoleProjectManager},
	ActionDeleteProject: {registry.RoleProjectManager},
	ActionAddVersion:    {registry.RoleProjectManager, registry.RoleVersionManager},
	ActionUpdateVersion: {registry.RoleProjectManager, registry.RoleVersionManager},
	ActionRemoveVersion: {registry.RoleProjectManager, registry.RoleVersionManager},
}

// IsMutating reports whether the action changes registry state.
func (a Action) IsMutating() bool {
	return mutating[a]
}

// RequiresAdmin reports whether only an admin may perform the action.
func (a Action) RequiresAdmin() bool {
	return adminOnly[a]
}

// AcceptedRoles returns the project roles that may perform the action,
// or nil for admin-only actions.
func (a Action) AcceptedRoles() []registry.RoleName {
	return acceptedRoles[a]
}
