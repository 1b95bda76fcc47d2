package models

import (
	"time"
)

// FeedItem represents a fetched RSS item retained per guild. Items are
// deduplicated by (guild_id, link), falling back to (guild_id, title,
// published_at) when the link is empty.
type FeedItem struct {
	ID          int64     `db:"id"`
	GuildID     int64     `db:"guild_id"`
	Title       string    `db:"title"`
	Link        string    `db:"link"`
	Description string    `db:"description"`
	PublishedAt time.Time `db:"published_at"`
	FetchedAt   time.Time `db:"fetched_at"`
}

// FeedChannelConfig represents a guild's configured news channel. A nil
// ChannelID disables daily news posting for the guild.
type FeedChannelConfig struct {
	GuildID   int64  `db:"guild_id"`
	ChannelID *int64 `db:"channel_id"`
}
