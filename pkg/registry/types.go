package registry

import "time"

// Project is a registered piece of documentation, identified by a unique
// short code (the "name") and carrying an ordered collection of versions.
type Project struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Logo        string    `json:"logo,omitempty"`
	Versions    []Version `json:"versions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Version is a named documentation build belonging to a project, pointing
// at the URL where it is hosted. Names are arbitrary tokens, not
// necessarily semver.
type Version struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LatestAlias is the reserved version name that resolves to the
// naturally-highest version of a project.
const LatestAlias = "latest"

// Version returns the named version, resolving the "latest" alias through
// natural ordering. Returns nil when the project has no matching version.
func (p *Project) Version(name string) *Version {
	if name == LatestAlias {
		return LatestVersion(p.Versions)
	}
	for i := range p.Versions {
		if p.Versions[i].Name == name {
			return &p.Versions[i]
		}
	}
	return nil
}

// HasVersion reports whether the project holds a version with the exact
// given name. The "latest" alias is not expanded here.
func (p *Project) HasVersion(name string) bool {
	for i := range p.Versions {
		if p.Versions[i].Name == name {
			return true
		}
	}
	return false
}

// ProjectUpdate describes a partial update of project metadata. Nil
// fields are left untouched. An update with no fields set is a caller
// error, distinct from the project being absent.
type ProjectUpdate struct {
	Title       *string
	Description *string
	Logo        *string
}

// IsEmpty reports whether the update carries no fields.
func (u ProjectUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Logo == nil
}

// RoleName identifies a capability kind grantable on a project. The set
// is closed: exactly two coarse kinds exist.
type RoleName string

const (
	// RoleProjectManager grants full control over a project: metadata
	// updates, deletion, and every version operation.
	RoleProjectManager RoleName = "PROJECT_MANAGER"
	// RoleVersionManager grants version operations only.
	RoleVersionManager RoleName = "VERSION_MANAGER"
)

// Valid reports whether the role name is one of the known kinds.
func (r RoleName) Valid() bool {
	return r == RoleProjectManager || r == RoleVersionManager
}

// Role is a grant of one capability kind scoped to one project, held by
// exactly one user.
type Role struct {
	RoleName    RoleName `json:"role_name"`
	ProjectCode string   `json:"project_code"`
}

// User is an authenticated principal. The bootstrap "root" user is
// created automatically on first startup and is admin by convention.
type User struct {
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	APIKeys   []APIKey  `json:"api_keys"`
	Roles     []Role    `json:"roles"`
}

// HasRole reports whether the user holds the exact (role, project) pair.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// APIKey is an opaque random token owned by one user. It is the sole
// authentication credential; keys never expire but can be invalidated.
type APIKey struct {
	Key       string    `json:"key"`
	IsValid   bool      `json:"is_valid"`
	CreatedAt time.Time `json:"created_at"`
}
