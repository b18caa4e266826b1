package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshelf/docshelf/pkg/registry"
)

func strPtr(s string) *string { return &s }

// runStoreConformance exercises the Store contract against any backend.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("ProjectLifecycle", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		project := &registry.Project{Name: "my-project", Title: "My Project"}
		require.NoError(t, store.CreateProject(ctx, project))

		err := store.CreateProject(ctx, &registry.Project{Name: "my-project", Title: "Again"})
		assert.ErrorIs(t, err, registry.ErrDuplicateProject)

		got, err := store.GetProject(ctx, "my-project")
		require.NoError(t, err)
		assert.Equal(t, "my-project", got.Name)
		assert.Equal(t, "My Project", got.Title)
		assert.Empty(t, got.Versions)

		_, err = store.GetProject(ctx, "missing")
		assert.ErrorIs(t, err, registry.ErrProjectNotFound)

		updated, err := store.UpdateProject(ctx, "my-project", registry.ProjectUpdate{
			Description: strPtr("docs for my project"),
		})
		require.NoError(t, err)
		assert.Equal(t, "docs for my project", updated.Description)
		assert.Equal(t, "My Project", updated.Title)

		_, err = store.UpdateProject(ctx, "my-project", registry.ProjectUpdate{})
		assert.ErrorIs(t, err, registry.ErrNoFieldsToUpdate)

		_, err = store.UpdateProject(ctx, "missing", registry.ProjectUpdate{Title: strPtr("x")})
		assert.ErrorIs(t, err, registry.ErrProjectNotFound)

		require.NoError(t, store.CreateProject(ctx, &registry.Project{Name: "another", Title: "Another"}))
		projects, err := store.ListProjects(ctx)
		require.NoError(t, err)
		require.Len(t, projects, 2)

		require.NoError(t, store.DeleteProject(ctx, "my-project"))
		_, err = store.GetProject(ctx, "my-project")
		assert.ErrorIs(t, err, registry.ErrProjectNotFound)

		// deleting again is a silent no-op
		require.NoError(t, store.DeleteProject(ctx, "my-project"))
	})

	t.Run("Versions", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.CreateProject(ctx, &registry.Project{Name: "lib", Title: "Lib"}))

		_, err := store.AddVersion(ctx, "missing", registry.Version{Name: "1.0.0", URL: "http://docs/1.0.0"})
		assert.ErrorIs(t, err, registry.ErrProjectNotFound)

		project, err := store.AddVersion(ctx, "lib", registry.Version{Name: "1.10.0", URL: "http://docs/1.10.0"})
		require.NoError(t, err)
		require.Len(t, project.Versions, 1)

		_, err = store.AddVersion(ctx, "lib", registry.Version{Name: "1.2.0", URL: "http://docs/1.2.0"})
		require.NoError(t, err)
		project, err = store.AddVersion(ctx, "lib", registry.Version{Name: "1.9.0", URL: "http://docs/1.9.0"})
		require.NoError(t, err)

		names := make([]string, 0, len(project.Versions))
		for _, v := range project.Versions {
			names = append(names, v.Name)
		}
		assert.Equal(t, []string{"1.2.0", "1.9.0", "1.10.0"}, names)

		_, err = store.AddVersion(ctx, "lib", registry.Version{Name: "1.2.0", URL: "http://elsewhere"})
		assert.ErrorIs(t, err, registry.ErrDuplicateVersion)

		project, err = store.UpdateVersion(ctx, "lib", "1.2.0", "http://moved/1.2.0")
		require.NoError(t, err)
		v := project.Version("1.2.0")
		require.NotNil(t, v)
		assert.Equal(t, "http://moved/1.2.0", v.URL)

		_, err = store.UpdateVersion(ctx, "lib", "9.9.9", "http://nowhere")
		assert.ErrorIs(t, err, registry.ErrVersionNotFound)

		project, err = store.RemoveVersion(ctx, "lib", "1.10.0")
		require.NoError(t, err)
		assert.Len(t, project.Versions, 2)

		// removing an absent version is a no-op
		project, err = store.RemoveVersion(ctx, "lib", "1.10.0")
		require.NoError(t, err)
		assert.Len(t, project.Versions, 2)
	})

	t.Run("ConcurrentAddVersion", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.CreateProject(ctx, &registry.Project{Name: "racy", Title: "Racy"}))

		// Conflicting concurrent writes must yield exactly one success
		// and a typed failure for every other writer.
		const writers = 8
		errs := make(chan error, writers)
		start := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := store.AddVersion(ctx, "racy", registry.Version{
					Name: "1.0.0",
					URL:  "http://docs/1.0.0",
				})
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		successes, conflicts := 0, 0
		for err := range errs {
			switch {
			case err == nil:
				successes++
			case errors.Is(err, registry.ErrDuplicateVersion):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, successes)
		assert.Equal(t, writers-1, conflicts)

		project, err := store.GetProject(ctx, "racy")
		require.NoError(t, err)
		assert.Len(t, project.Versions, 1)
	})

	t.Run("Users", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		user := &registry.User{
			Name:    "alice",
			APIKeys: []registry.APIKey{{Key: "alice-key", IsValid: true}},
		}
		require.NoError(t, store.CreateUser(ctx, user))

		err := store.CreateUser(ctx, &registry.User{Name: "alice"})
		assert.ErrorIs(t, err, registry.ErrDuplicateUser)

		got, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, got.IsAdmin)
		require.Len(t, got.APIKeys, 1)
		assert.Equal(t, "alice-key", got.APIKeys[0].Key)

		_, err = store.GetUser(ctx, "nobody")
		assert.ErrorIs(t, err, registry.ErrUserNotFound)

		byKey, err := store.GetUserForAPIKey(ctx, "alice-key")
		require.NoError(t, err)
		assert.Equal(t, "alice", byKey.Name)

		_, err = store.GetUserForAPIKey(ctx, "bogus")
		assert.ErrorIs(t, err, registry.ErrUserNotFound)

		revoked := &registry.User{
			Name:    "bob",
			APIKeys: []registry.APIKey{{Key: "bob-key", IsValid: false}},
		}
		require.NoError(t, store.CreateUser(ctx, revoked))
		_, err = store.GetUserForAPIKey(ctx, "bob-key")
		assert.ErrorIs(t, err, registry.ErrUserNotFound)

		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("Roles", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, store.CreateProject(ctx, &registry.Project{Name: "proj-a", Title: "A"}))
		require.NoError(t, store.CreateProject(ctx, &registry.Project{Name: "proj-b", Title: "B"}))
		require.NoError(t, store.CreateUser(ctx, &registry.User{Name: "carol"}))

		manage := registry.Role{RoleName: registry.RoleProjectManager, ProjectCode: "proj-a"}

		user, err := store.AddRoles(ctx, "carol", []registry.Role{manage})
		require.NoError(t, err)
		require.Len(t, user.Roles, 1)

		// idempotent re-grant
		user, err = store.AddRoles(ctx, "carol", []registry.Role{manage})
		require.NoError(t, err)
		assert.Len(t, user.Roles, 1)

		// atomic: unknown project fails the whole batch
		_, err = store.AddRoles(ctx, "carol", []registry.Role{
			{RoleName: registry.RoleVersionManager, ProjectCode: "proj-b"},
			{RoleName: registry.RoleVersionManager, ProjectCode: "ghost"},
		})
		assert.ErrorIs(t, err, registry.ErrProjectNotFound)
		user, err = store.GetUser(ctx, "carol")
		require.NoError(t, err)
		assert.Len(t, user.Roles, 1)

		_, err = store.AddRoles(ctx, "nobody", []registry.Role{manage})
		assert.ErrorIs(t, err, registry.ErrUserNotFound)

		has, err := store.HasRole(ctx, "carol", manage)
		require.NoError(t, err)
		assert.True(t, has)

		has, err = store.HasRole(ctx, "carol", registry.Role{RoleName: registry.RoleVersionManager, ProjectCode: "proj-a"})
		require.NoError(t, err)
		assert.False(t, has)

		_, err = store.HasRole(ctx, "nobody", manage)
		assert.ErrorIs(t, err, registry.ErrUserNotFound)

		user, err = store.RemoveRoles(ctx, "carol", []registry.Role{manage})
		require.NoError(t, err)
		assert.Empty(t, user.Roles)

		// removing an absent role is a no-op
		user, err = store.RemoveRoles(ctx, "carol", []registry.Role{manage})
		require.NoError(t, err)
		assert.Empty(t, user.Roles)
	})

	t.Run("RootBootstrap", func(t *testing.T) {
		store := newStore(t)
		defer store.Close()

		require.NoError(t, EnsureRootUser(ctx, store, "the-root-key"))

		root, err := store.GetUserForAPIKey(ctx, "the-root-key")
		require.NoError(t, err)
		assert.Equal(t, RootUserName, root.Name)
		assert.True(t, root.IsAdmin)

		// second boot leaves the existing root untouched
		require.NoError(t, EnsureRootUser(ctx, store, "a-different-key"))
		root, err = store.GetUser(ctx, RootUserName)
		require.NoError(t, err)
		require.Len(t, root.APIKeys, 1)
		assert.Equal(t, "the-root-key", root.APIKeys[0].Key)
	})
}
