package repository

import (
	"context"
	"testing"
	"time"

	"sattbot/models"
	"sattbot/repository/testutil"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuildSettingsRepository_GetOrCreate(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGuildSettingsRepository(testDB.DB)
	ctx := context.Background()

	t.Run("first contact creates defaults", func(t *testing.T) {
		settings, err := repo.GetOrCreateGuildSettings(ctx, 100)
		require.NoError(t, err)
		require.NotNil(t, settings)

		assert.Equal(t, int64(100), settings.GuildID)
		assert.Equal(t, models.DefaultSpamMaxMsgs, settings.SpamMaxMsgs)
		assert.Equal(t, models.DefaultSpamMuteSecs, settings.SpamMuteSecs)
		assert.Equal(t, models.DefaultScanLimit, settings.ScanLimit)
		assert.Equal(t, models.DefaultNukeDays, settings.NukeDays)
		assert.Equal(t, models.DefaultAIModel, settings.AIModel)
		assert.False(t, settings.SetupComplete)
	})

	t.Run("second call returns the same row", func(t *testing.T) {
		first, err := repo.GetOrCreateGuildSettings(ctx, 200)
		require.NoError(t, err)

		first.SpamMaxMsgs = 3
		require.NoError(t, repo.UpdateGuildSettings(ctx, first))

		again, err := repo.GetOrCreateGuildSettings(ctx, 200)
		require.NoError(t, err)
		assert.Equal(t, 3, again.SpamMaxMsgs)
		assert.Equal(t, first.CreatedAt, again.CreatedAt)
	})
}

func TestGuildSettingsRepository_Update(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGuildSettingsRepository(testDB.DB)
	ctx := context.Background()

	t.Run("updates all fields", func(t *testing.T) {
		settings, err := repo.GetOrCreateGuildSettings(ctx, 100)
		require.NoError(t, err)

		settings.SpamMaxMsgs = 5
		settings.SpamMuteSecs = 120
		settings.ScanLimit = 500
		settings.NukeDays = 30
		settings.AIModel = "google/gemini-2.5-pro"
		settings.SetupComplete = true
		require.NoError(t, repo.UpdateGuildSettings(ctx, settings))

		updated, err := repo.GetOrCreateGuildSettings(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, 5, updated.SpamMaxMsgs)
		assert.Equal(t, 120, updated.SpamMuteSecs)
		assert.Equal(t, 500, updated.ScanLimit)
		assert.Equal(t, 30, updated.NukeDays)
		assert.Equal(t, "google/gemini-2.5-pro", updated.AIModel)
		assert.True(t, updated.SetupComplete)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
	})

	t.Run("missing guild errors", func(t *testing.T) {
		err := repo.UpdateGuildSettings(ctx, &models.GuildSettings{GuildID: 999})
		assert.Error(t, err)
	})
}

func TestGuildSettingsRepository_DeleteGuildCascades(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	settingsRepo := NewGuildSettingsRepository(testDB.DB)
	policyRepo := NewCommandPolicyRepository(testDB.DB)
	feedRepo := NewFeedRepository(testDB.DB)
	pollRepo := NewPollRepository(testDB.DB)

	// Build out a guild with data in every dependent table, atomically
	err := testDB.DB.WithTransaction(ctx, func(tx pgx.Tx) error {
		txSettings := newGuildSettingsRepositoryWithTx(tx)
		txPolicy := newCommandPolicyRepositoryWithTx(tx)
		txFeed := newFeedRepositoryWithTx(tx)
		txPoll := newPollRepositoryWithTx(tx)

		if _, err := txSettings.GetOrCreateGuildSettings(ctx, 100); err != nil {
			return err
		}
		if err := txPolicy.SetAccess(ctx, 100, "meme", models.AccessRestricted); err != nil {
			return err
		}
		if err := txPolicy.AddRole(ctx, 100, "meme", 555); err != nil {
			return err
		}

		channelID := int64(5000)
		if err := txFeed.SetChannel(ctx, 100, &channelID); err != nil {
			return err
		}
		if _, err := txFeed.InsertNewItems(ctx, 100, []models.FeedItem{
			testutil.CreateTestFeedItem(100, "https://example.com/1"),
		}); err != nil {
			return err
		}

		if err := txPoll.SetChannel(ctx, 100, &channelID); err != nil {
			return err
		}
		return txPoll.CreatePoll(ctx, testutil.CreateTestPoll(100, time.Now().Add(8*time.Hour)))
	})
	require.NoError(t, err)

	// A second guild's data must survive the delete
	_, err = settingsRepo.GetOrCreateGuildSettings(ctx, 200)
	require.NoError(t, err)
	require.NoError(t, policyRepo.SetAccess(ctx, 200, "meme", models.AccessAdminOnly))

	require.NoError(t, settingsRepo.DeleteGuild(ctx, 100))

	// Everything under guild 100 is gone
	_, found, err := policyRepo.GetAccess(ctx, 100, "meme")
	require.NoError(t, err)
	assert.False(t, found)

	roles, err := policyRepo.GetRoles(ctx, 100, "meme")
	require.NoError(t, err)
	assert.Empty(t, roles)

	ch, err := feedRepo.GetChannel(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, ch)

	items, err := feedRepo.GetRecentItems(ctx, 100, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, items)

	polls, err := pollRepo.GetDuePolls(ctx, time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, polls)

	// Guild 200 is untouched
	access, found, err := policyRepo.GetAccess(ctx, 200, "meme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.AccessAdminOnly, access)
}
