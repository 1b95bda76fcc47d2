package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"sattbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollRepository_CreateAndDue(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	settingsRepo := NewGuildSettingsRepository(testDB.DB)
	repo := NewPollRepository(testDB.DB)

	_, err := settingsRepo.GetOrCreateGuildSettings(ctx, 100)
	require.NoError(t, err)

	now := time.Now().UTC()

	pending := testutil.CreateTestPoll(100, now.Add(8*time.Hour))
	require.NoError(t, repo.CreatePoll(ctx, pending))
	assert.NotZero(t, pending.ID)
	assert.False(t, pending.CreatedAt.IsZero())

	due := testutil.CreateTestPoll(100, now.Add(-time.Minute))
	require.NoError(t, repo.CreatePoll(ctx, due))

	t.Run("only past-due unrevealed polls", func(t *testing.T) {
		polls, err := repo.GetDuePolls(ctx, now)
		require.NoError(t, err)
		require.Len(t, polls, 1)
		assert.Equal(t, due.ID, polls[0].ID)
		assert.Equal(t, "Is the sky blue?", polls[0].Question)
		assert.JSONEq(t, string(due.AnswerData), string(polls[0].AnswerData))
	})

	t.Run("a guild can hold several pending polls", func(t *testing.T) {
		second := testutil.CreateTestPoll(100, now.Add(-time.Second))
		require.NoError(t, repo.CreatePoll(ctx, second))

		polls, err := repo.GetDuePolls(ctx, now)
		require.NoError(t, err)
		assert.Len(t, polls, 2)
	})
}

func TestPollRepository_MarkRevealed(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	settingsRepo := NewGuildSettingsRepository(testDB.DB)
	repo := NewPollRepository(testDB.DB)

	_, err := settingsRepo.GetOrCreateGuildSettings(ctx, 100)
	require.NoError(t, err)

	t.Run("flips exactly once", func(t *testing.T) {
		poll := testutil.CreateTestPoll(100, time.Now().Add(-time.Minute))
		require.NoError(t, repo.CreatePoll(ctx, poll))

		won, err := repo.MarkRevealed(ctx, poll.ID)
		require.NoError(t, err)
		assert.True(t, won)

		won, err = repo.MarkRevealed(ctx, poll.ID)
		require.NoError(t, err)
		assert.False(t, won)

		polls, err := repo.GetDuePolls(ctx, time.Now())
		require.NoError(t, err)
		assert.Empty(t, polls)
	})

	t.Run("one winner under contention", func(t *testing.T) {
		poll := testutil.CreateTestPoll(100, time.Now().Add(-time.Minute))
		require.NoError(t, repo.CreatePoll(ctx, poll))

		const racers = 8
		wins := make(chan bool, racers)
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				won, err := repo.MarkRevealed(ctx, poll.ID)
				assert.NoError(t, err)
				wins <- won
			}()
		}
		wg.Wait()
		close(wins)

		winners := 0
		for won := range wins {
			if won {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})

	t.Run("missing poll is not won", func(t *testing.T) {
		won, err := repo.MarkRevealed(ctx, 999999)
		require.NoError(t, err)
		assert.False(t, won)
	})
}

func TestPollRepository_Retention(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	ctx := context.Background()
	settingsRepo := NewGuildSettingsRepository(testDB.DB)
	repo := NewPollRepository(testDB.DB)

	_, err := settingsRepo.GetOrCreateGuildSettings(ctx, 100)
	require.NoError(t, err)

	old := testutil.CreateTestPoll(100, time.Now().Add(-time.Hour))
	require.NoError(t, repo.CreatePoll(ctx, old))
	recent := testutil.CreateTestPoll(100, time.Now().Add(8*time.Hour))
	require.NoError(t, repo.CreatePoll(ctx, recent))

	_, err = testDB.DB.Pool.Exec(ctx,
		`UPDATE qotd_active_polls SET created_at = NOW() - INTERVAL '8 days' WHERE id = $1`, old.ID)
	require.NoError(t, err)

	deleted, err := repo.DeletePollsBefore(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
