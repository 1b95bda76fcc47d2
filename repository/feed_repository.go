package repository

import (
	"context"
	"fmt"
	"time"

	"sattbot/database"
	"sattbot/models"

	"github.com/jackc/pgx/v5"
)

// FeedRepository implements the FeedRepository interface
type FeedRepository struct {
	q queryable
}

// NewFeedRepository creates a new feed repository
func NewFeedRepository(db *database.DB) *FeedRepository {
	return &FeedRepository{q: db.Pool}
}

// newFeedRepositoryWithTx creates a new feed repository with a transaction
func newFeedRepositoryWithTx(tx queryable) *FeedRepository {
	return &FeedRepository{q: tx}
}

// GetChannel returns the guild's configured news channel, nil if unset
func (r *FeedRepository) GetChannel(ctx context.Context, guildID int64) (*int64, error) {
	query := `SELECT channel_id FROM rss_guild_config WHERE guild_id = $1`

	var channelID *int64
	err := r.q.QueryRow(ctx, query, guildID).Scan(&channelID)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get news channel for guild %d: %w", guildID, err)
	}

	return channelID, nil
}

// SetChannel upserts the guild's news channel
func (r *FeedRepository) SetChannel(ctx context.Context, guildID int64, channelID *int64) error {
	query := `
		INSERT INTO rss_guild_config (guild_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET channel_id = EXCLUDED.channel_id
	`

	if _, err := r.q.Exec(ctx, query, guildID, channelID); err != nil {
		return fmt.Errorf("failed to set news channel for guild %d: %w", guildID, err)
	}

	return nil
}

// ListConfiguredGuilds returns all guilds with a news channel set
func (r *FeedRepository) ListConfiguredGuilds(ctx context.Context) ([]models.FeedChannelConfig, error) {
	query := `
		SELECT guild_id, channel_id
		FROM rss_guild_config
		WHERE channel_id IS NOT NULL
		ORDER BY guild_id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list configured news guilds: %w", err)
	}
	defer rows.Close()

	var configs []models.FeedChannelConfig
	for rows.Next() {
		var cfg models.FeedChannelConfig
		if err := rows.Scan(&cfg.GuildID, &cfg.ChannelID); err != nil {
			return nil, fmt.Errorf("failed to scan news config: %w", err)
		}
		configs = append(configs, cfg)
	}

	return configs, rows.Err()
}

// InsertNewItems inserts items the guild has not seen before, preserving
// input order, and returns the number actually inserted. Items with a link
// dedup on (guild_id, link); items without one fall back to
// (guild_id, title, published_at).
func (r *FeedRepository) InsertNewItems(ctx context.Context, guildID int64, items []models.FeedItem) (int, error) {
	linkedQuery := `
		INSERT INTO rss_feed_items (guild_id, title, link, description, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, link) WHERE link <> '' DO NOTHING
	`
	linklessQuery := `
		INSERT INTO rss_feed_items (guild_id, title, link, description, published_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, title, published_at) WHERE link = '' DO NOTHING
	`

	inserted := 0
	for _, item := range items {
		query := linkedQuery
		if item.Link == "" {
			query = linklessQuery
		}
		result, err := r.q.Exec(ctx, query, guildID, item.Title, item.Link, item.Description, item.PublishedAt)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert feed item %q for guild %d: %w", item.Title, guildID, err)
		}
		inserted += int(result.RowsAffected())
	}

	return inserted, nil
}

// GetRecentItems returns items fetched for a guild since the given time,
// newest first
func (r *FeedRepository) GetRecentItems(ctx context.Context, guildID int64, since time.Time) ([]*models.FeedItem, error) {
	query := `
		SELECT id, guild_id, title, link, description, published_at, fetched_at
		FROM rss_feed_items
		WHERE guild_id = $1 AND fetched_at >= $2
		ORDER BY fetched_at DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query, guildID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent items for guild %d: %w", guildID, err)
	}
	defer rows.Close()

	var items []*models.FeedItem
	for rows.Next() {
		var item models.FeedItem
		if err := rows.Scan(
			&item.ID,
			&item.GuildID,
			&item.Title,
			&item.Link,
			&item.Description,
			&item.PublishedAt,
			&item.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feed item: %w", err)
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

// DeleteItemsBefore removes items fetched before the cutoff across all
// guilds. Returns the number deleted.
func (r *FeedRepository) DeleteItemsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM rss_feed_items WHERE fetched_at < $1`

	result, err := r.q.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete feed items before %s: %w", cutoff, err)
	}

	return result.RowsAffected(), nil
}
