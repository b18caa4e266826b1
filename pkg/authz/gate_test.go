package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docshelf/docshelf/pkg/registry"
)

func projectManager(code string) *registry.User {
	return &registry.User{
		Name:  "pm",
		Roles: []registry.Role{{RoleName: registry.RoleProjectManager, ProjectCode: code}},
	}
}

func versionManager(code string) *registry.User {
	return &registry.User{
		Name:  "vm",
		Roles: []registry.Role{{RoleName: registry.RoleVersionManager, ProjectCode: code}},
	}
}

func TestGateReadOnlyBlocksMutationsFirst(t *testing.T) {
	gate := NewGate(StaticFlags{ReadOnlyMode: true})
	ctx := context.Background()

	admin := &registry.User{Name: "root", IsAdmin: true}
	err := gate.Authorize(ctx, admin, ActionCreateProject, "")
	assert.ErrorIs(t, err, ErrReadOnly)

	// read-only outranks the login-disabled bypass
	gate = NewGate(StaticFlags{ReadOnlyMode: true, LoginOff: true})
	err = gate.Authorize(ctx, nil, ActionAddVersion, "lib")
	assert.ErrorIs(t, err, ErrReadOnly)

	// non-mutating admin reads still work in read-only mode
	err = NewGate(StaticFlags{ReadOnlyMode: true}).Authorize(ctx, admin, ActionListUsers, "")
	assert.NoError(t, err)
}

func TestGateLoginDisabledAllowsEveryone(t *testing.T) {
	gate := NewGate(StaticFlags{LoginOff: true})
	ctx := context.Background()

	assert.NoError(t, gate.Authorize(ctx, nil, ActionCreateProject, ""))
	assert.NoError(t, gate.Authorize(ctx, nil, ActionListUsers, ""))
	assert.NoError(t, gate.Authorize(ctx, nil, ActionRemoveVersion, "lib"))
}

func TestGateAnonymousRejected(t *testing.T) {
	gate := NewGate(StaticFlags{})
	err := gate.Authorize(context.Background(), nil, ActionAddVersion, "lib")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestGateAdminOnlyActions(t *testing.T) {
	gate := NewGate(StaticFlags{})
	ctx := context.Background()

	pm := projectManager("lib")
	for _, action := range []Action{ActionCreateProject, ActionCreateUser, ActionListUsers, ActionAddRoles} {
		err := gate.Authorize(ctx, pm, action, "")
		assert.ErrorIs(t, err, ErrForbidden, "action %s", action)
	}

	admin := &registry.User{Name: "root", IsAdmin: true}
	for _, action := range []Action{ActionCreateProject, ActionCreateUser, ActionListUsers, ActionAddRoles} {
		assert.NoError(t, gate.Authorize(ctx, admin, action, ""), "action %s", action)
	}
}

func TestGateProjectScopedRoles(t *testing.T) {
	gate := NewGate(StaticFlags{})
	ctx := context.Background()

	pm := projectManager("lib")
	vm := versionManager("lib")

	// project mutations need the project-manager role
	assert.NoError(t, gate.Authorize(ctx, pm, ActionUpdateProject, "lib"))
	assert.ErrorIs(t, gate.Authorize(ctx, vm, ActionUpdateProject, "lib"), ErrForbidden)
	assert.ErrorIs(t, gate.Authorize(ctx, vm, ActionDeleteProject, "lib"), ErrForbidden)

	// version mutations accept either manager role
	assert.NoError(t, gate.Authorize(ctx, pm, ActionAddVersion, "lib"))
	assert.NoError(t, gate.Authorize(ctx, vm, ActionAddVersion, "lib"))
	assert.NoError(t, gate.Authorize(ctx, vm, ActionRemoveVersion, "lib"))

	// roles never leak across projects
	assert.ErrorIs(t, gate.Authorize(ctx, pm, ActionUpdateProject, "other"), ErrForbidden)
	assert.ErrorIs(t, gate.Authorize(ctx, vm, ActionAddVersion, "other"), ErrForbidden)

	// admins bypass project role checks
	admin := &registry.User{Name: "root", IsAdmin: true}
	assert.NoError(t, gate.Authorize(ctx, admin, ActionDeleteProject, "lib"))
}
