package repository

import (
	"context"
	"testing"

	"sattbot/models"
	"sattbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandPolicyRepository_Access(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	settingsRepo := NewGuildSettingsRepository(testDB.DB)
	repo := NewCommandPolicyRepository(testDB.DB)

	_, err := settingsRepo.GetOrCreateGuildSettings(ctx, 100)
	require.NoError(t, err)

	t.Run("missing row reports not found", func(t *testing.T) {
		_, found, err := repo.GetAccess(ctx, 100, "meme")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, repo.SetAccess(ctx, 100, "meme", models.AccessAdminOnly))

		access, found, err := repo.GetAccess(ctx, 100, "meme")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, models.AccessAdminOnly, access)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, repo.SetAccess(ctx, 100, "meme", models.AccessRestricted))

		access, _, err := repo.GetAccess(ctx, 100, "meme")
		require.NoError(t, err)
		assert.Equal(t, models.AccessRestricted, access)
	})
}

func TestCommandPolicyRepository_SeedDefaults(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	settingsRepo := NewGuildSettingsRepository(testDB.DB)
	repo := NewCommandPolicyRepository(testDB.DB)

	_, err := settingsRepo.GetOrCreateGuildSettings(ctx, 100)
	require.NoError(t, err)

	defaults := map[string]models.AccessLevel{
		"ping": models.AccessPublic,
		"nuke": models.AccessAdminOnly,
	}
	require.NoError(t, repo.SeedDefaults(ctx, 100, defaults))

	// An admin tightened ping; re-seeding must not undo that
	require.NoError(t, repo.SetAccess(ctx, 100, "ping", models.AccessAdminOnly))
	require.NoError(t, repo.SeedDefaults(ctx, 100, defaults))

	access, _, err := repo.GetAccess(ctx, 100, "ping")
	require.NoError(t, err)
	assert.Equal(t, models.AccessAdminOnly, access)

	all, err := repo.GetAllAccess(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCommandPolicyRepository_RoleGrants(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	settingsRepo := NewGuildSettingsRepository(testDB.DB)
	repo := NewCommandPolicyRepository(testDB.DB)

	_, err := settingsRepo.GetOrCreateGuildSettings(ctx, 100)
	require.NoError(t, err)

	t.Run("add and list", func(t *testing.T) {
		require.NoError(t, repo.AddRole(ctx, 100, "meme", 555))
		require.NoError(t, repo.AddRole(ctx, 100, "meme", 777))
		// Duplicate add is a no-op
		require.NoError(t, repo.AddRole(ctx, 100, "meme", 555))

		roles, err := repo.GetRoles(ctx, 100, "meme")
		require.NoError(t, err)
		assert.Equal(t, []int64{555, 777}, roles)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, repo.RemoveRole(ctx, 100, "meme", 555))

		roles, err := repo.GetRoles(ctx, 100, "meme")
		require.NoError(t, err)
		assert.Equal(t, []int64{777}, roles)

		// Removing an absent grant is a no-op
		require.NoError(t, repo.RemoveRole(ctx, 100, "meme", 555))
	})

	t.Run("grants keyed by command", func(t *testing.T) {
		require.NoError(t, repo.AddRole(ctx, 100, "roastme", 888))

		grants, err := repo.GetAllRoleGrants(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, []int64{777}, grants["meme"])
		assert.Equal(t, []int64{888}, grants["roastme"])
	})
}
