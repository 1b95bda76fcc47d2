package repository

import (
	"context"
	"testing"
	"time"

	"sattbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStateRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewJobStateRepository(testDB.DB)
	ctx := context.Background()

	t.Run("never-fired job returns nil", func(t *testing.T) {
		state, err := repo.Get(ctx, "daily-news")
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("upsert and get", func(t *testing.T) {
		first := time.Date(2026, 2, 26, 8, 0, 0, 0, time.UTC)
		require.NoError(t, repo.Upsert(ctx, "daily-news", first))

		state, err := repo.Get(ctx, "daily-news")
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, "daily-news", state.JobName)
		assert.True(t, state.LastFiredAt.Equal(first))

		second := first.Add(24 * time.Hour)
		require.NoError(t, repo.Upsert(ctx, "daily-news", second))

		state, err = repo.Get(ctx, "daily-news")
		require.NoError(t, err)
		assert.True(t, state.LastFiredAt.Equal(second))
	})
}
