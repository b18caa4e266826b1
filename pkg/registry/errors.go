package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrProjectNotFound is returned when no project exists with the given code
	ErrProjectNotFound = errors.New("project not found")

	// ErrDuplicateProject is returned when a project code is already taken
	ErrDuplicateProject = errors.New("project already exists")

	// ErrVersionNotFound is returned when a project has no version with the given name
	ErrVersionNotFound = errors.New("version not found")

	// ErrDuplicateVersion is returned when a (project, version name) pair already exists
	ErrDuplicateVersion = errors.New("version already exists")

	// ErrUserNotFound is returned when no user exists with the given name
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUser is returned when a user name is already taken
	ErrDuplicateUser = errors.New("user already exists")

	// ErrNoFieldsToUpdate is returned when a partial update carries no fields
	ErrNoFieldsToUpdate = errors.New("no fields to update")

	// ErrInvalidProjectCode is returned when a project code fails validation
	ErrInvalidProjectCode = errors.New("invalid project code")

	// ErrInvalidRoleName is returned when a role name is outside the known set
	ErrInvalidRoleName = errors.New("invalid role name")
)

// IsNotFound checks if the error is or wraps any of the not-found errors
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrVersionNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

// IsConflict checks if the error is or wraps any of the duplicate errors
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateProject) ||
		errors.Is(err, ErrDuplicateVersion) ||
		errors.Is(err, ErrDuplicateUser)
}

// NewProjectNotFoundError creates a project not found error naming the code
func NewProjectNotFoundError(code string) error {
	return fmt.Errorf("%w: %s", ErrProjectNotFound, code)
}

// NewVersionNotFoundError creates a version not found error naming the pair
func NewVersionNotFoundError(code, version string) error {
	return fmt.Errorf("%w: %s/%s", ErrVersionNotFound, code, version)
}

// NewUserNotFoundError creates a user not found error naming the user
func NewUserNotFoundError(name string) error {
	return fmt.Errorf("%w: %s", ErrUserNotFound, name)
}
