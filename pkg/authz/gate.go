// Package authz decides whether a caller may perform a registry action.
// Every API mutation and every admin read funnels through the gate so
// the precedence between service modes, authentication and roles is
// enforced in one place.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/docshelf/docshelf/pkg/registry"
)

var (
	// ErrReadOnly rejects mutations while the service is locked down.
	ErrReadOnly = errors.New("service is in read-only mode")
	// ErrUnauthenticated rejects requests without a resolvable api key.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden rejects authenticated callers lacking the capability.
	ErrForbidden = errors.New("permission denied")
)

// Flags exposes the runtime service modes the gate consults. The config
// package satisfies this with live-reloadable values.
type Flags interface {
	ReadOnly() bool
	LoginDisabled() bool
}

// StaticFlags is a fixed Flags value, used by tests and the admin CLI.
type StaticFlags struct {
	ReadOnlyMode bool
	LoginOff     bool
}

func (f StaticFlags) ReadOnly() bool      { return f.ReadOnlyMode }
func (f StaticFlags) LoginDisabled() bool { return f.LoginOff }

// Gate evaluates actions against the service flags and the caller's
// roles.
type Gate struct {
	flags Flags
}

// NewGate creates a gate over the given flags.
func NewGate(flags Flags) *Gate {
	return &Gate{flags: flags}
}

// Authorize decides whether user (nil when anonymous) may perform
// action on projectCode (empty when the action is not project-scoped).
// The checks apply in a fixed order: read-only lockout first, then the
// login-disabled bypass, then authentication, then admin requirement,
// then project roles.
func (g *Gate) Authorize(ctx context.Context, user *registry.User, action Action, projectCode string) error {
	if g.flags.ReadOnly() && action.IsMutating() {
		return fmt.Errorf("%w: %s", ErrReadOnly, action)
	}

	if g.flags.LoginDisabled() {
		return nil
	}

	if user == nil {
		return fmt.Errorf("%w: %s", ErrUnauthenticated, action)
	}

	if action.RequiresAdmin() {
		if !user.IsAdmin {
			return fmt.Errorf("%w: %s requires admin", ErrForbidden, action)
		}
		return nil
	}

	accepted := action.AcceptedRoles()
	if len(accepted) == 0 {
		// action carries no role table, only the checks above apply
		return nil
	}

	if user.IsAdmin {
		return nil
	}

	for _, roleName := range accepted {
		if user.HasRole(registry.Role{RoleName: roleName, ProjectCode: projectCode}) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", ErrForbidden, action, projectCode)
}
